package landmark

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"go-proctor-inspector/internal/video"
)

// WebSocketFactory dials a remote landmark service once per analysis
type WebSocketFactory struct {
	URL              string
	Options          Options
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	Logger           *logrus.Logger
}

// NewDetector dials the service, passing the model options as query parameters
func (f *WebSocketFactory) NewDetector(ctx context.Context) (Detector, error) {
	u, err := url.Parse(f.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid landmark service URL: %w", err)
	}
	q := u.Query()
	q.Set("min_detection_confidence", strconv.FormatFloat(f.Options.MinDetectionConfidence, 'f', -1, 64))
	q.Set("min_tracking_confidence", strconv.FormatFloat(f.Options.MinTrackingConfidence, 'f', -1, 64))
	q.Set("max_faces", strconv.Itoa(f.Options.MaxFaces))
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{
		HandshakeTimeout: orDefault(f.HandshakeTimeout, 10*time.Second),
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", u.Host, err)
	}

	if f.Logger != nil {
		f.Logger.WithField("host", u.Host).Debug("connected to landmark service")
	}

	return &WebSocketDetector{
		conn:         conn,
		readTimeout:  orDefault(f.ReadTimeout, 10*time.Second),
		writeTimeout: orDefault(f.WriteTimeout, 5*time.Second),
	}, nil
}

// WebSocketDetector sends binary frames and reads one JSON reply per frame
type WebSocketDetector struct {
	conn         *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Detect sends one RGB frame and waits for its landmarks
func (d *WebSocketDetector) Detect(ctx context.Context, frame video.Frame) ([]FaceLandmarks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := encodeFrame(frame)
	if err != nil {
		return nil, err
	}

	if err := d.conn.SetWriteDeadline(time.Now().Add(d.writeTimeout)); err != nil {
		return nil, fmt.Errorf("set write deadline: %w", err)
	}
	if err := d.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return nil, fmt.Errorf("send frame: %w", err)
	}

	if err := d.conn.SetReadDeadline(time.Now().Add(d.readTimeout)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	messageType, message, err := d.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
		return nil, fmt.Errorf("unexpected message type %d", messageType)
	}
	return decodeReply(message)
}

// Close sends a normal close frame and drops the connection
func (d *WebSocketDetector) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = d.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(d.writeTimeout))
	return d.conn.Close()
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
