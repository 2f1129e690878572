package datachannel

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// SendRequest is one plaintext awaiting encryption, with a channel to
// receive either the ciphertext or an error.
type SendRequest struct {
	Plaintext []byte
	Result    chan<- SendResult
}

type SendResult struct {
	Ciphertext []byte
	Err        error
}

// RecvRequest is one ciphertext awaiting decryption.
type RecvRequest struct {
	Ciphertext []byte
	Result     chan<- RecvResult
}

type RecvResult struct {
	Plaintext []byte
	Err       error
}

// WorkerPair runs the encryptor and decryptor as two independent
// single-threaded mailboxes, one worker per direction. Each direction
// serializes its own counter without contending with the other: two
// independent nonce counters.
type WorkerPair struct {
	encrypt *Cipher
	decrypt *Cipher

	sendMailbox chan SendRequest
	recvMailbox chan RecvRequest

	group  *errgroup.Group
	cancel context.CancelFunc
}

// NewWorkerPair starts the encryptor/decryptor goroutines. mailboxSize
// bounds how many in-flight requests may queue per direction before
// Send/Receive block.
func NewWorkerPair(ctx context.Context, encrypt, decrypt *Cipher, mailboxSize int) *WorkerPair {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	wp := &WorkerPair{
		encrypt:     encrypt,
		decrypt:     decrypt,
		sendMailbox: make(chan SendRequest, mailboxSize),
		recvMailbox: make(chan RecvRequest, mailboxSize),
		group:       g,
		cancel:      cancel,
	}

	g.Go(func() error { return wp.runEncryptor(gctx) })
	g.Go(func() error { return wp.runDecryptor(gctx) })

	return wp
}

func (wp *WorkerPair) runEncryptor(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-wp.sendMailbox:
			ct, err := wp.encrypt.Encrypt(req.Plaintext)
			req.Result <- SendResult{Ciphertext: ct, Err: err}
		}
	}
}

func (wp *WorkerPair) runDecryptor(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-wp.recvMailbox:
			pt, err := wp.decrypt.Decrypt(req.Ciphertext)
			req.Result <- RecvResult{Plaintext: pt, Err: err}
		}
	}
}

// Send encrypts plaintext via the encryptor worker and waits for the
// result.
func (wp *WorkerPair) Send(ctx context.Context, plaintext []byte) ([]byte, error) {
	result := make(chan SendResult, 1)
	select {
	case wp.sendMailbox <- SendRequest{Plaintext: plaintext, Result: result}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-result:
		return r.Ciphertext, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Receive decrypts ciphertext via the decryptor worker and waits for
// the result.
func (wp *WorkerPair) Receive(ctx context.Context, ciphertext []byte) ([]byte, error) {
	result := make(chan RecvResult, 1)
	select {
	case wp.recvMailbox <- RecvRequest{Ciphertext: ciphertext, Result: result}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-result:
		return r.Plaintext, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops both workers and waits for them to exit.
func (wp *WorkerPair) Close() error {
	wp.cancel()
	if err := wp.group.Wait(); err != nil {
		return fmt.Errorf("datachannel: worker pair shutdown: %w", err)
	}
	return nil
}
