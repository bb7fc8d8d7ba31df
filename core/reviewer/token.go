package reviewer

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Action is what an invitation token allows its bearer to do.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

var (
	salt    = []byte("confhub.backend.core.reviewer.token")
	b32     = base32.StdEncoding.WithPadding(base32.NoPadding)
	NowFunc = time.Now // mockable
)

// tokenGenerator signs invitation links. A token reads `<id>-<day stamp>-<signature>`.
type tokenGenerator struct {
	secretKey string
	timeout   time.Duration
}

func (g tokenGenerator) makeToken(invitationID string, action Action) (string, error) {
	return g.makeTokenWithTimestamp(invitationID, action, numDaysSince2001(NowFunc()))
}

// verifyToken checks that token was issued for action and returns the invitation id it carries.
func (g tokenGenerator) verifyToken(token string, action Action) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	parts := strings.SplitN(token, "-", 3)
	if len(parts) < 3 {
		return "", ErrInvalidToken
	}

	idBytes, err := b32.DecodeString(parts[0])
	if err != nil {
		return "", ErrInvalidToken
	}
	data, err := b32.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return "", ErrInvalidToken
	}

	// check that token has not been tampered with
	id := string(idBytes)
	newToken, err := g.makeTokenWithTimestamp(id, action, ts)
	if err != nil {
		return "", err
	}
	if subtle.ConstantTimeCompare([]byte(newToken), []byte(token)) == 0 {
		return "", ErrInvalidToken
	}

	// check that the timestamp is within limit
	if (numDaysSince2001(NowFunc()) - ts) > int(g.timeout/(24*time.Hour)) {
		return "", ErrTokenExpired
	}
	return id, nil
}

func (g tokenGenerator) makeTokenWithTimestamp(invitationID string, action Action, ts int) (string, error) {
	idB32 := b32.EncodeToString([]byte(invitationID))
	tsB32 := b32.EncodeToString([]byte(strconv.Itoa(ts)))
	sig, err := g.sign(hashValue(invitationID, action, ts))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", idB32, tsB32, sig), nil
}

func (g tokenGenerator) sign(val []byte) (string, error) {
	key := sha256.Sum256(append(salt, g.secretKey...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(invitationID string, action Action, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(invitationID)
	val.WriteString(string(action))
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
