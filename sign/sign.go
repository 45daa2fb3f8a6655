// Package sign embeds and verifies RSA signatures of PNG files.
//
// The signature covers the SHA-256 digest of the file as it was before
// signing. It is stored hex encoded in a tEXt chunk with the keyword
// "Signature", inserted right before IEND.
package sign

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/tajtiattila/pngdepth"
)

// SignatureKey is the tEXt keyword holding the signature.
const SignatureKey = "Signature"

// ErrBadSignature is returned by Verify if the signature does not match.
var ErrBadSignature = errors.New("sign: signature verification failed")

// Digest returns the SHA-256 digest of p.
func Digest(p []byte) []byte {
	h := sha256.Sum256(p)
	return h[:]
}

// Sign signs the current contents of d with key
// and inserts the hex encoded signature into d.
// It returns the hex encoded signature.
func Sign(d *pngdepth.Document, key *rsa.PrivateKey) (string, error) {
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, Digest(d.Bytes()))
	if err != nil {
		return "", errors.Wrap(err, "sign")
	}
	s := hex.EncodeToString(sig)
	if err := d.InsertText(SignatureKey, s); err != nil {
		return "", err
	}
	return s, nil
}

// Verify checks the first signature in d against pub.
//
// The signed content is recovered by leaving the signature chunk out of d.
// It returns png.ErrNotFound if d has no signature,
// and ErrBadSignature if it does not match.
func Verify(d *pngdepth.Document, pub *rsa.PublicKey) error {
	c, s, err := d.FindText(SignatureKey)
	if err != nil {
		return err
	}
	sig, err := hex.DecodeString(s)
	if err != nil {
		return errors.WithMessagef(ErrBadSignature, "signature is not hex: %v", err)
	}

	r, err := d.ReaderWithout(c)
	if err != nil {
		return err
	}
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return errors.WithStack(err)
	}

	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, h.Sum(nil), sig); err != nil {
		return errors.WithMessage(ErrBadSignature, err.Error())
	}
	return nil
}

// LoadPrivateKey reads a PEM encoded RSA private key in PKCS#8 or PKCS#1 form.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	der, err := readPEM(path)
	if err != nil {
		return nil, err
	}
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, errors.Wrapf(err, "sign: %s", path)
	}
	rk, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.Errorf("sign: %s: not an RSA private key", path)
	}
	return rk, nil
}

// LoadPublicKey reads a PEM encoded RSA public key in PKIX or PKCS#1 form.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	der, err := readPEM(path)
	if err != nil {
		return nil, err
	}
	if k, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return k, nil
	}
	k, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, errors.Wrapf(err, "sign: %s", path)
	}
	rk, ok := k.(*rsa.PublicKey)
	if !ok {
		return nil, errors.Errorf("sign: %s: not an RSA public key", path)
	}
	return rk, nil
}

func readPEM(path string) ([]byte, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	b, _ := pem.Decode(p)
	if b == nil {
		return nil, errors.Errorf("sign: %s: no PEM data", path)
	}
	return b.Bytes, nil
}
