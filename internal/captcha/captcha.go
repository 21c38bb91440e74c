// Package captcha valida respuestas de captcha contra un verificador externo
// (estilo reCAPTCHA/hCaptcha: POST de formulario, respuesta JSON con success).
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oliverbravery/OpenAuth/internal/observability/logger"
)

// ErrVerificationFailed: el proveedor respondió pero rechazó la respuesta.
var ErrVerificationFailed = errors.New("captcha: verification failed")

// Verifier valida el token de captcha que acompaña un intento de login.
type Verifier interface {
	Verify(ctx context.Context, response string) error
}

// HTTPVerifier verifica contra un endpoint remoto. Cualquier fallo de red o
// timeout cuenta como rechazo: el login nunca procede con un captcha dudoso.
type HTTPVerifier struct {
	VerifyURL string
	Secret    string
	Client    *http.Client
}

func NewHTTPVerifier(verifyURL, secret string, timeout time.Duration) *HTTPVerifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPVerifier{
		VerifyURL: verifyURL,
		Secret:    secret,
		Client:    &http.Client{Timeout: timeout},
	}
}

func (v *HTTPVerifier) Verify(ctx context.Context, response string) error {
	form := url.Values{}
	form.Set("secret", v.Secret)
	form.Set("response", response)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.VerifyURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.Client.Do(req)
	if err != nil {
		logger.From(ctx).Warn("captcha provider unreachable", logger.Err(err))
		return ErrVerificationFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.From(ctx).Warn("captcha provider error", logger.Status(resp.StatusCode))
		return ErrVerificationFailed
	}

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ErrVerificationFailed
	}
	if !body.Success {
		return ErrVerificationFailed
	}
	return nil
}

// Disabled es el verificador nulo para entornos sin captcha.
type Disabled struct{}

func (Disabled) Verify(context.Context, string) error { return nil }
