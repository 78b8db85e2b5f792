package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"
	"strings"

	"github.com/torwire/torctl/control"
)

// cookieLen is the fixed length of tor's authentication cookie file.
const cookieLen = 32

// nonceLen is the length of the client nonce generated for AUTHCHALLENGE,
// matching the server nonce length tor returns.
const nonceLen = 32

var (
	// serverKey is the HMAC key tor uses when hashing the server's half
	// of the SAFECOOKIE handshake.
	serverKey = []byte("Tor safe cookie authentication server-to-controller hash")

	// controllerKey is the HMAC key used for the controller's half.
	controllerKey = []byte("Tor safe cookie authentication controller-to-server hash")
)

func authenticateSafeCookie(t *control.Transport, cookiePath string) error {
	cookie, err := readCookie(cookiePath)
	if err != nil {
		return fmt.Errorf("auth: unable to read cookie file: %w", err)
	}

	clientNonce := make([]byte, nonceLen)
	if _, err := rand.Read(clientNonce); err != nil {
		return fmt.Errorf("auth: unable to generate client nonce: %w", err)
	}

	reply, err := t.Request(fmt.Sprintf("AUTHCHALLENGE SAFECOOKIE %x", clientNonce))
	if err != nil {
		return err
	}
	challenge, err := control.ParseAuthChallenge(reply)
	if err != nil {
		return err
	}

	hmacMessage := bytes.Join([][]byte{cookie, clientNonce, challenge.ServerNonce[:]}, nil)
	expectedServerHash := computeHMAC256(serverKey, hmacMessage)
	if !hmac.Equal(expectedServerHash, challenge.ServerHash[:]) {
		return fmt.Errorf("auth: server hash mismatch: expected %x, got %x",
			expectedServerHash, challenge.ServerHash)
	}

	clientHash := computeHMAC256(controllerKey, hmacMessage)
	authReply, err := t.Request(fmt.Sprintf("AUTHENTICATE %x", clientHash))
	if err != nil {
		return err
	}
	return authenticateError(authReply)
}

func readCookie(path string) ([]byte, error) {
	path = strings.Trim(path, `"`)
	if path == "" {
		return nil, fmt.Errorf("no cookie file path available")
	}
	cookie, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(cookie) != cookieLen {
		return nil, fmt.Errorf("invalid cookie length: got %d, want %d", len(cookie), cookieLen)
	}
	return cookie, nil
}

func computeHMAC256(key, message []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}
