package car

import (
	"context"
	"image"
	"image/jpeg"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// DefaultCameraURL is the capture endpoint of the camera module on the
// car's own access point.
const DefaultCameraURL = "http://192.168.4.1:7000/capture"

// Camera fetches frames from the robot's camera module. The module is a
// separate device from the drive controller, with its own HTTP endpoint,
// so a Camera works even when no Driver is connected.
type Camera struct {
	URL    string
	Client *http.Client
}

// NewCamera points at the given capture URL. An empty url selects
// DefaultCameraURL.
func NewCamera(url string) *Camera {
	if url == "" {
		url = DefaultCameraURL
	}
	return &Camera{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Capture fetches one JPEG frame. The sensor is mounted sideways, so
// portrait frames are rotated a quarter turn counterclockwise to
// landscape before being returned.
func (c *Camera) Capture(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building capture request")
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching frame")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching frame: %s", resp.Status)
	}
	frame, err := jpeg.Decode(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "decoding frame")
	}
	if b := frame.Bounds(); b.Dy() > b.Dx() {
		frame = rotateCCW(frame)
	}
	return frame, nil
}

// rotateCCW turns the image a quarter turn counterclockwise: the top
// right corner of the source becomes the top left corner of the result.
func rotateCCW(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := 0; y < b.Dx(); y++ {
		for x := 0; x < b.Dy(); x++ {
			dst.Set(x, y, src.At(b.Min.X+b.Dx()-1-y, b.Min.Y+x))
		}
	}
	return dst
}
