package utils

import (
	"time"

	"github.com/mojocn/base64Captcha"
	"github.com/redis/go-redis/v9"
)

const captchaTTL = 10 * time.Minute

// Captcha issues digit captchas for the admin login form.
type Captcha struct {
	store  base64Captcha.Store
	driver base64Captcha.Driver
}

// NewCaptcha keeps answers in Redis when rc is set so any instance can verify them.
func NewCaptcha(rc *redis.Client) *Captcha {
	var store base64Captcha.Store
	if rc != nil {
		store = NewRedisCaptchaStore(rc, captchaTTL)
	} else {
		store = base64Captcha.NewMemoryStore(base64Captcha.GCLimitNumber, captchaTTL)
	}
	return &Captcha{
		store:  store,
		driver: base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80),
	}
}

// Generate returns the captcha id and a data URI image.
func (c *Captcha) Generate() (string, string, error) {
	id, b64, _, err := base64Captcha.NewCaptcha(c.driver, c.store).Generate()
	return id, b64, err
}

// Verify checks the answer and consumes the captcha whatever the outcome.
func (c *Captcha) Verify(id, answer string) bool {
	if id == "" || answer == "" {
		return false
	}
	return c.store.Verify(id, answer, true)
}
