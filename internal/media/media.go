// Package media prepares uploaded audio and images for transmission to the
// analysis model.
//
// Audio passes through untouched apart from MIME normalization. Images are
// bounded to a maximum edge and re-encoded as JPEG at reduced quality so a
// phone photo does not blow up the request payload.
package media

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"mime"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultAudioMIME is assumed when a recording arrives without a content
// type. It matches what browser MediaRecorder produces by default.
const DefaultAudioMIME = "audio/webm"

// ImageMIME is the type every prepared image is re-encoded to.
const ImageMIME = "image/jpeg"

// ErrBadImage reports an upload that could not be decoded as an image.
var ErrBadImage = errors.New("unsupported or corrupt image")

// AudioMIME normalizes a recording's content type: parameters such as
// ";codecs=opus" are stripped, and an absent type falls back to
// DefaultAudioMIME.
func AudioMIME(contentType string) string {
	ct := strings.TrimSpace(contentType)
	if ct == "" {
		return DefaultAudioMIME
	}
	if base, _, err := mime.ParseMediaType(ct); err == nil {
		return base
	}
	return ct
}

// PrepareImage decodes an uploaded image (JPEG, PNG, GIF, or WebP), scales
// it down so its longest edge does not exceed maxEdge, and re-encodes it as
// JPEG at the given quality. Images already within bounds are still
// re-encoded so every outgoing payload has a uniform format.
func PrepareImage(data []byte, maxEdge, quality int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxEdge > 0 && (w > maxEdge || h > maxEdge) {
		scale := float64(maxEdge) / float64(max(w, h))
		nw := max(int(float64(w)*scale+0.5), 1)
		nh := max(int(float64(h)*scale+0.5), 1)
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Fingerprint returns the SHA-256 hex digest of an uploaded payload, used to
// tell whether two consultations reference the same image. An absent payload
// fingerprints to the empty string.
func Fingerprint(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
