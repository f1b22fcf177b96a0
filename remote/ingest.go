package remote

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	opuscodec "github.com/jj11hh/opus"
)

const (
	ingestSampleRate = 16000

	// wavHeaderSize is the canonical PCM WAV header length. Browser
	// recorders emit this fixed layout, so the header is skipped rather
	// than parsed.
	wavHeaderSize = 44

	// maxIngestBody caps one HTTP ingest request at about one minute of
	// 16 kHz PCM16.
	maxIngestBody = 2 * 1024 * 1024

	wsReadDeadline = 60 * time.Second
)

// handleIngest accepts a chunk of audio over HTTP and feeds it to the
// pipeline. Receiving any audio switches the pipeline to remote mode so the
// local microphone does not compete with the stream.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read request body")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "no audio data received")
		return
	}

	samples, err := decodeIngestBody(body, r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}

	s.ctrl.SetRemoteMode(true)
	s.ctrl.PushFrames(samples)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "samples_received": len(samples)})
}

func decodeIngestBody(body []byte, contentType string) ([]float32, error) {
	switch {
	case strings.Contains(contentType, "audio/wav"):
		if len(body) <= wavHeaderSize {
			return nil, fmt.Errorf("wav payload too short")
		}
		return pcm16ToFloat32(body[wavHeaderSize:]), nil
	case contentType == "" || strings.Contains(contentType, "application/octet-stream"):
		return pcm16ToFloat32(body), nil
	default:
		return nil, fmt.Errorf("unsupported content type %q, send audio/wav or raw PCM16", contentType)
	}
}

// handleWebSocket streams audio frames over a persistent connection. Binary
// messages carry either raw little-endian PCM16 (the default) or opus packets
// when the client connects with ?format=opus. The local microphone is paused
// for the duration of the session and restored on disconnect.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  16 * 1024,
		WriteBufferSize: 4 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	format := r.URL.Query().Get("format")
	logger := s.logger.With("session", sessionID, "format", format)

	var decoder *opuscodec.Decoder
	if format == "opus" {
		decoder, err = opuscodec.NewDecoder(ingestSampleRate, 1)
		if err != nil {
			logger.Error("create opus decoder", "error", err)
			return
		}
	} else if format != "" && format != "pcm16" {
		logger.Warn("unknown stream format, closing")
		return
	}

	s.ctrl.SetRemoteMode(true)
	defer s.ctrl.SetRemoteMode(false)
	logger.Info("ingest session started", "remote", r.RemoteAddr)

	pcm := make([]float32, 8192)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("ingest session ended", "error", err)
			} else {
				logger.Info("ingest session closed")
			}
			return
		}
		if messageType != websocket.BinaryMessage || len(payload) == 0 {
			continue
		}

		if decoder != nil {
			n, err := decoder.DecodeFloat32(payload, pcm)
			if err != nil {
				logger.Warn("opus decode failed", "bytes", len(payload), "error", err)
				continue
			}
			s.ctrl.PushFrames(pcm[:n])
		} else {
			s.ctrl.PushFrames(pcm16ToFloat32(payload))
		}
	}
}

// pcm16ToFloat32 converts little-endian PCM16 bytes to [-1, 1] samples. A
// trailing odd byte is dropped.
func pcm16ToFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[2*i:]))
		samples[i] = float32(v) / 32768.0
	}
	return samples
}
