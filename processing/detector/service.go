package processing

import (
	"bytes"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"facelabel/internal/config"
	"facelabel/internal/logger"
	"facelabel/internal/models"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RemoteDetector finds faces by sending each frame as a JPEG over a
// websocket and reading back a JSON array of detections. Cascade parameters
// are ignored: the server owns its own model settings.
type RemoteDetector struct {
	serverURL     string
	label         string
	minConfidence float32
	timeout       time.Duration

	dialer *websocket.Dialer
	log    *logrus.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewRemoteDetector(cfg config.RemoteDetectorConfig, log *logrus.Logger) *RemoteDetector {
	if log == nil {
		log = logger.Discard()
	}

	timeout := cfg.Timeout()

	return &RemoteDetector{
		serverURL:     cfg.URL,
		label:         cfg.Label,
		minConfidence: cfg.MinConfidence,
		timeout:       timeout,
		dialer: &websocket.Dialer{
			HandshakeTimeout: timeout,
		},
		log: log,
	}
}

func (d *RemoteDetector) Detect(f Frame, _ float64, _ int) ([]image.Rectangle, error) {
	img, err := f.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "convert frame")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return nil, errors.Wrap(err, "jpeg encode")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	results, err := d.roundTrip(buf.Bytes())
	if err != nil {
		d.dropConn()
		return nil, err
	}

	return d.toRects(results, f.Bounds()), nil
}

func (d *RemoteDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}

	d.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	d.dropConn()

	return nil
}

func (d *RemoteDetector) roundTrip(payload []byte) ([]models.DetectionResult, error) {
	if d.conn == nil {
		d.log.WithFields(logrus.Fields{"url": d.serverURL}).Info("connecting to detector server")

		conn, _, err := d.dialer.Dial(d.serverURL, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "dial %s", d.serverURL)
		}
		d.conn = conn
	}

	deadline := time.Now().Add(d.timeout)

	d.conn.SetWriteDeadline(deadline)
	if err := d.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return nil, errors.Wrap(err, "send frame")
	}

	d.conn.SetReadDeadline(deadline)
	_, message, err := d.conn.ReadMessage()
	if err != nil {
		return nil, errors.Wrap(err, "read detections")
	}

	var results []models.DetectionResult
	if err := json.Unmarshal(message, &results); err != nil {
		return nil, errors.Wrap(err, "decode detections")
	}

	return results, nil
}

func (d *RemoteDetector) dropConn() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

func (d *RemoteDetector) toRects(results []models.DetectionResult, bounds image.Rectangle) []image.Rectangle {
	imgWidth := float32(bounds.Dx())
	imgHeight := float32(bounds.Dy())

	rects := make([]image.Rectangle, 0, len(results))
	for _, res := range results {
		if d.label != "" && res.Label != d.label {
			continue
		}
		if res.Confidence < d.minConfidence || len(res.Box) != 4 {
			continue
		}

		y1 := int(res.Box[0] * imgHeight)
		x1 := int(res.Box[1] * imgWidth)
		y2 := int(res.Box[2] * imgHeight)
		x2 := int(res.Box[3] * imgWidth)

		r := image.Rect(x1, y1, x2, y2).Add(bounds.Min).Intersect(bounds)
		if r.Empty() {
			continue
		}
		rects = append(rects, r)
	}

	return rects
}
