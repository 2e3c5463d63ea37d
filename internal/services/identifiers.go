package services

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var codeAlphabet = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

func randomCode(length int) (string, error) {
	b := make([]rune, length)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

func base36Time(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 36)
}

var (
	slugStrip  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces = regexp.MustCompile(`\s+`)
	slugDashes = regexp.MustCompile(`-+`)
)

func slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// newSlug returns slugify(title)-<base36 millis>. attempt > 0 appends a random
// tail so a retry after a collision cannot produce the same slug again.
func newSlug(title string, now time.Time, attempt int) (string, error) {
	slug := slugify(title) + "-" + base36Time(now)
	if attempt > 0 {
		tail, err := randomCode(4)
		if err != nil {
			return "", err
		}
		slug += "-" + strings.ToLower(tail)
	}
	return strings.TrimPrefix(slug, "-"), nil
}

// newRegistrationNumber returns REG-<BASE36 TIME>-<4 RANDOM>.
func newRegistrationNumber(now time.Time) (string, error) {
	tail, err := randomCode(4)
	if err != nil {
		return "", err
	}
	return "REG-" + strings.ToUpper(base36Time(now)) + "-" + tail, nil
}

// newCertificateID returns CERT-<BASE36 TIME>-<6 RANDOM>.
func newCertificateID(now time.Time) (string, error) {
	tail, err := randomCode(6)
	if err != nil {
		return "", err
	}
	return "CERT-" + strings.ToUpper(base36Time(now)) + "-" + tail, nil
}

func newTransactionID() string {
	return "TXN-" + uuid.NewString()
}
