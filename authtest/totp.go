package authtest

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// totpMaterial is one freshly provisioned secret with its display forms.
type totpMaterial struct {
	secret   string
	uri      string
	imageURL string
}

// issueTOTP provisions a new secret plus the otpauth URI and a PNG data URL
// of the QR code, the exact material the setup endpoint returns.
func issueTOTP(issuer, accountName string) (totpMaterial, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
	})
	if err != nil {
		return totpMaterial{}, err
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return totpMaterial{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return totpMaterial{}, err
	}

	return totpMaterial{
		secret:   key.Secret(),
		uri:      key.String(),
		imageURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

func totpOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// verifyTOTP checks a code against the secret at the given instant. The
// instant comes from the server clock so tests drive it deterministically.
func verifyTOTP(code, secret string, at time.Time) bool {
	valid, err := totp.ValidateCustom(code, secret, at, totpOpts())
	return err == nil && valid
}

// TOTPCode mints the valid code for a secret at the given instant. Tests and
// the example binary use it in place of an authenticator app.
func TOTPCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, totpOpts())
}
