package log

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05Z07:00"})
}

// SetOutput redirects the app log (stdout plus a file, typically).
func SetOutput(w io.Writer) { logger.SetOutput(w) }

func fields(c *fiber.Ctx, action string, extra map[string]any) logrus.Fields {
	f := logrus.Fields{"action": action}
	if c != nil {
		f["ip"] = c.IP()
		f["method"] = c.Method()
		f["path"] = c.Path()
		f["status"] = c.Response().StatusCode()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			f["req_id"] = rid
		}
	}
	for k, v := range extra {
		f[k] = v
	}
	return f
}

func Info(c *fiber.Ctx, action string, extra map[string]any) {
	logger.WithFields(fields(c, action, extra)).Info(action)
}

// Audit marks state-changing operations worth keeping in the trail.
func Audit(c *fiber.Ctx, action string, extra map[string]any) {
	logger.WithFields(fields(c, action, extra)).WithField("audit", true).Info(action)
}

// Security marks denied access, failed validation, rate-limit hits.
func Security(c *fiber.Ctx, action string, extra map[string]any) {
	logger.WithFields(fields(c, action, extra)).Warn(action)
}

func Error(c *fiber.Ctx, action string, err error, extra map[string]any) {
	e := logger.WithFields(fields(c, action, extra))
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(action)
}
