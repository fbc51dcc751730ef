package cloudinary

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/funnelform/funnelform-backend/internal/logger"
	"github.com/funnelform/funnelform-backend/internal/utils"
)

// Client issues signed-upload parameters for the browser to upload directly
// against the Cloudinary API, and validates delivery URLs merchants paste
// into quiz content. It holds no state beyond credentials.
type Client interface {
	SignUpload(folder string) UploadSignature
	ValidDeliveryURL(url string) bool
}

type Config struct {
	CloudName string
	APIKey    string
	APISecret string
}

type UploadSignature struct {
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
	APIKey    string `json:"api_key"`
	CloudName string `json:"cloud_name"`
	Folder    string `json:"folder"`
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		CloudName: strings.TrimSpace(utils.GetEnv("CLOUDINARY_CLOUD_NAME", "", log)),
		APIKey:    strings.TrimSpace(utils.GetEnv("CLOUDINARY_API_KEY", "", log)),
		APISecret: strings.TrimSpace(utils.GetEnv("CLOUDINARY_API_SECRET", "", log)),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv(log))
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("missing CLOUDINARY_CLOUD_NAME/CLOUDINARY_API_KEY/CLOUDINARY_API_SECRET")
	}
	deliveryRe, err := regexp.Compile(`^https://res\.cloudinary\.com/` + regexp.QuoteMeta(cfg.CloudName) + `/image/upload/\S+$`)
	if err != nil {
		return nil, fmt.Errorf("Failed to compile delivery URL pattern: %w", err)
	}
	return &client{
		log:        log.With("client", "CloudinaryClient"),
		cfg:        cfg,
		deliveryRe: deliveryRe,
		now:        time.Now,
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	deliveryRe *regexp.Regexp
	now        func() time.Time
}

// SignUpload follows the Cloudinary signing contract: the signature is the
// sha1 of the alphabetically-sorted "k=v" parameter string with the API
// secret appended. Only folder and timestamp are signed here.
func (c *client) SignUpload(folder string) UploadSignature {
	ts := c.now().Unix()
	return UploadSignature{
		Timestamp: ts,
		Signature: signParams(folder, ts, c.cfg.APISecret),
		APIKey:    c.cfg.APIKey,
		CloudName: c.cfg.CloudName,
		Folder:    folder,
	}
}

func (c *client) ValidDeliveryURL(url string) bool {
	return c.deliveryRe.MatchString(strings.TrimSpace(url))
}

func signParams(folder string, timestamp int64, secret string) string {
	params := fmt.Sprintf("folder=%s&timestamp=%d", folder, timestamp)
	sum := sha1.Sum([]byte(params + secret))
	return hex.EncodeToString(sum[:])
}
