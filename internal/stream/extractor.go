package stream

import (
	"bytes"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// JPEG start-of-image and end-of-image markers. The MJPEG stream has
// no container framing; frame boundaries exist only as these two-byte
// patterns in the raw byte flow.
var (
	soiMarker = []byte{0xff, 0xd8}
	eoiMarker = []byte{0xff, 0xd9}
)

// readLoop consumes the stdout pipe until the stream ends or the
// supervisor stops, publishing every complete frame it finds.
//
// Whatever the exit reason, the running flag is cleared on the way
// out, so consumers can see that the stream died even when nobody
// called Stop.
func (s *Supervisor) readLoop(r io.Reader) {
	defer s.wg.Done()
	defer s.running.Store(false)

	buf := make([]byte, 0, s.cfg.ChunkSize*4)
	chunk := make([]byte, s.cfg.ChunkSize)

	for s.running.Load() {
		n, err := r.Read(chunk)
		if n > 0 {
			s.bytesRead.Add(uint64(n))
			buf = append(buf, chunk[:n]...)
			buf = scanFrames(buf, s.publish, &s.resyncs)

			if len(buf) > s.cfg.MaxBuffer {
				// No frame resolved in this much data: the stream is
				// desynchronized. Drop everything and resync on the
				// next start marker that comes in.
				s.bufferResets.Add(1)
				slog.Warn("stream: no frame boundary found, discarding buffer",
					"discarded_bytes", len(buf),
				)
				buf = buf[:0]
			}
		}
		if err != nil {
			if err != io.EOF && s.running.Load() {
				slog.Error("stream: video stream read failed", "error", err)
			} else {
				slog.Debug("stream: video stream ended")
			}
			return
		}
	}
}

// scanFrames extracts every complete frame currently in buf, invoking
// emit for each one, and returns the unconsumed remainder.
//
// Scan policy, in order:
//   - Both markers present, start before end: emit the inclusive
//     range and keep scanning the remainder, since one read can carry
//     several frames. Bytes before the start marker are discarded.
//   - End marker before any start marker: a stray trailer from a
//     desync. Cut the buffer at the start marker and rescan.
//   - Either marker missing: keep the bytes and wait for more data.
func scanFrames(buf []byte, emit func([]byte), resyncs *atomic.Uint64) []byte {
	for {
		a := bytes.Index(buf, soiMarker)
		b := bytes.Index(buf, eoiMarker)
		if a == -1 || b == -1 {
			return buf
		}
		if a > b {
			resyncs.Add(1)
			buf = buf[a:]
			continue
		}
		emit(buf[a : b+2])
		buf = buf[b+2:]
	}
}

// publish copies one complete JPEG out of the scan buffer and swaps
// it into the latest-frame cell. The copy keeps published frames
// independent of the buffer, which the read loop keeps reusing.
func (s *Supervisor) publish(raw []byte) {
	data := make([]byte, len(raw))
	copy(data, raw)

	s.latest.store(&Frame{
		Seq:       s.frames.Add(1),
		Timestamp: time.Now(),
		TraceID:   uuid.New().String(),
		Data:      data,
	})
}
