// Package qr renders pairing challenges as scannable images.
package qr

import (
	"encoding/base64"
	stderrors "errors"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/piyushkb/WhastapWeb/errors"
)

var errEmptyChallenge = stderrors.New("empty challenge")

// imageSize is the rendered PNG edge length in pixels.
const imageSize = 256

// DataURL renders a pairing challenge as a base64 PNG data URL, suitable
// for direct use as an <img> source.
func DataURL(challenge string) (string, error) {
	if challenge == "" {
		return "", errors.WrapInvalid(errEmptyChallenge, "qr", "DataURL", "challenge check")
	}

	png, err := qrcode.Encode(challenge, qrcode.Medium, imageSize)
	if err != nil {
		return "", errors.WrapEngine(err, "qr", "DataURL", "encode challenge")
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
