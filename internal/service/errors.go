package service

import (
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"syscall"

	"hospital-service/pkg/response"
)

// IsOffline reports whether err means the store could not be reached.
func IsOffline(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, response.ErrOffline) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "offline") ||
		strings.Contains(msg, "unavailable")
}

// IsPermission reports whether the store refused the caller.
func IsPermission(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, response.ErrPermission) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "permission")
}
