// Package live streams a doctor's appointment counts over a websocket. Every
// change in the appointment feed pushes a fresh snapshot.
package live

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"hospital-service/internal/counts"
	mwAuth "hospital-service/internal/http-server/middleware/auth"
	"hospital-service/pkg/response"
	"hospital-service/pkg/sl"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type TrackerFactory interface {
	NewTracker() *counts.Tracker
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func New(log *slog.Logger, factory TrackerFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.live.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		sess, ok := mwAuth.SessionFrom(r.Context())
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "not signed in"))
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("websocket upgrade failed", sl.Err(err))
			return
		}
		defer ws.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Only the newest snapshot matters; older undelivered ones are dropped.
		updates := make(chan counts.Snapshot, 1)
		var pushMu sync.Mutex

		tracker := factory.NewTracker()
		tracker.OnChange(func(s counts.Snapshot) {
			pushMu.Lock()
			defer pushMu.Unlock()

			select {
			case <-updates:
			default:
			}
			select {
			case updates <- s:
			default:
			}
		})
		defer tracker.Close()

		go readPump(ws, cancel)

		tracker.Start(ctx, sess.Principal.UID)

		log.Info("live counts stream opened", slog.String("doctor_id", sess.Principal.UID))

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("live counts stream closed")
				return
			case snap := <-updates:
				_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := ws.WriteJSON(snap); err != nil {
					log.Warn("failed to push snapshot", sl.Err(err))
					return
				}
			case <-ticker.C:
				_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}

// readPump discards client frames and cancels the stream once the peer goes
// away or stops answering pings.
func readPump(ws *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
