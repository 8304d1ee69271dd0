package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	errorsmod "cosmossdk.io/errors"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/signing"
)

// maxBodyBytes bounds signed request bodies.
const maxBodyBytes = 1 << 20

type ctxKey int

const signerKey ctxKey = iota

// Signer returns the authenticated signer of a request handled by a signed route.
func Signer(ctx context.Context) domain.Address {
	signer, _ := ctx.Value(signerKey).(domain.Address)
	return signer
}

// signed authenticates the request, applies the per-signer write limit and
// consumes the nonce before calling next. A rate-limited request keeps its
// nonce so the same signed request can be retried.
func (s *Server) signed(next HandlerFunc) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		signer, nonce, err := s.authenticate(w, r)
		if err != nil {
			s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("rejected unsigned request")
			return err
		}
		if !s.limiter.Allow(string(signer)) {
			return errorsmod.Wrapf(ErrRateLimited, "signer %s", signer)
		}
		if err := s.nonces.Use(signer, nonce); err != nil {
			return err
		}
		return next(w, r.WithContext(context.WithValue(r.Context(), signerKey, signer)))
	}
}

// authenticate verifies the signature headers over the canonical payload.
// The body is buffered and put back on r.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (domain.Address, uint64, error) {
	signerHdr := r.Header.Get(signing.HeaderSigner)
	nonceHdr := r.Header.Get(signing.HeaderNonce)
	signature := r.Header.Get(signing.HeaderSignature)
	if signerHdr == "" || nonceHdr == "" || signature == "" {
		return "", 0, ErrUnsigned
	}

	signer, err := domain.ParseAddress(signerHdr)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", signing.ErrInvalidSigner, err)
	}
	nonce, err := strconv.ParseUint(nonceHdr, 10, 64)
	if err != nil {
		return "", 0, BadRequest(fmt.Errorf("nonce: %v", err))
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return "", 0, HTTPError(errorsmod.Wrap(ErrBadRequest, err.Error()), http.StatusRequestEntityTooLarge)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if err := signing.Verify(signer, signing.Payload(r.Method, r.URL.Path, nonce, body), signature); err != nil {
		return "", 0, err
	}
	return signer, nonce, nil
}
