package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/example/solyield/internal/program"
	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

var errNotConfirmed = errors.New("transaction not confirmed yet")

// Client drives a deployed solana_yield program over JSON-RPC.
type Client struct {
	c          *rpc.Client
	commitment rpc.CommitmentType
	programID  sol.PublicKey
	address    sol.PublicKey
	payer      *sol.PrivateKey

	sendAttempts    uint
	confirmAttempts uint
	retryDelay      time.Duration
	log             *zap.Logger
}

type Option func(*Client)

// WithPayer sets the wallet that signs and pays for initialize. Without it
// the client is read-only.
func WithPayer(key sol.PrivateKey) Option {
	return func(c *Client) { c.payer = &key }
}

// WithRetry sets send attempts and the delay between RPC retries.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.sendAttempts = attempts
		}
		c.retryDelay = delay
	}
}

// WithConfirmAttempts bounds how many times the signature status is polled.
func WithConfirmAttempts(n uint) Option {
	return func(c *Client) {
		if n > 0 {
			c.confirmAttempts = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

func NewClient(rpcURL string, commitment string, programID sol.PublicKey, opts ...Option) (*Client, error) {
	cm := rpc.CommitmentType(commitment)
	if cm == "" {
		cm = rpc.CommitmentFinalized
	}
	addr, _, err := program.DeriveGlobalStateAddress(programID)
	if err != nil {
		return nil, fmt.Errorf("derive global state address: %w", err)
	}
	cl := &Client{
		c:               rpc.New(rpcURL),
		commitment:      cm,
		programID:       programID,
		address:         addr,
		sendAttempts:    3,
		confirmAttempts: 120,
		retryDelay:      500 * time.Millisecond,
		log:             zap.NewNop(),
	}
	for _, o := range opts {
		o(cl)
	}
	cl.log = cl.log.Named("solana")
	return cl, nil
}

// Address returns the derived global state address.
func (cl *Client) Address() sol.PublicKey { return cl.address }

// Payer returns the signing wallet, if any.
func (cl *Client) Payer() (sol.PublicKey, bool) {
	if cl.payer == nil {
		return sol.PublicKey{}, false
	}
	return cl.payer.PublicKey(), true
}

func (cl *Client) retryOpts(ctx context.Context, attempts uint) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(cl.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	}
}

// Ping checks the node's health endpoint.
func (cl *Client) Ping(ctx context.Context) error {
	_, err := cl.c.GetHealth(ctx)
	return err
}

// Balance returns lamports held by pubkey.
func (cl *Client) Balance(ctx context.Context, pubkey sol.PublicKey) (uint64, error) {
	res, err := cl.c.GetBalance(ctx, pubkey, cl.commitment)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// State fetches and decodes the global state account.
func (cl *Client) State(ctx context.Context) (*program.GlobalState, error) {
	res, err := cl.c.GetAccountInfoWithOpts(ctx, cl.address, &rpc.GetAccountInfoOpts{
		Encoding:   sol.EncodingBase64,
		Commitment: cl.commitment,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, program.ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	data := res.Value.Data.GetBinary()
	if len(data) == 0 && res.Value.Owner.Equals(sol.SystemProgramID) {
		return nil, program.ErrNotInitialized
	}
	if !res.Value.Owner.Equals(cl.programID) {
		return nil, fmt.Errorf("%w: owner %s", program.ErrInvalidAccountData, res.Value.Owner)
	}
	return program.DecodeGlobalState(data)
}

// Initialize submits the initialize instruction signed by the payer and
// waits for confirmation. Only the payer can be the caller.
func (cl *Client) Initialize(ctx context.Context, req program.InitializeRequest) (program.Receipt, error) {
	if cl.payer == nil || !cl.payer.PublicKey().Equals(req.Caller) {
		return program.Receipt{}, fmt.Errorf("%w: %s", program.ErrSignerUnavailable, req.Caller)
	}
	if err := program.CheckStateAddress(cl.address, req.StateAddress); err != nil {
		return program.Receipt{}, err
	}

	// Skip the fee when the record is already there.
	if _, err := cl.State(ctx); err == nil {
		return program.Receipt{}, program.ErrAlreadyInitialized
	} else if !errors.Is(err, program.ErrNotInitialized) {
		return program.Receipt{}, err
	}

	start := time.Now()
	ix := program.NewInitializeInstruction(cl.programID, cl.address, req.Caller)

	var hash *rpc.GetLatestBlockhashResult
	err := retry.Do(func() error {
		var rerr error
		hash, rerr = cl.c.GetLatestBlockhash(ctx, cl.commitment)
		return rerr
	}, cl.retryOpts(ctx, cl.sendAttempts)...)
	if err != nil {
		return program.Receipt{}, fmt.Errorf("get latest blockhash: %w", err)
	}

	tx, err := sol.NewTransaction([]sol.Instruction{ix}, hash.Value.Blockhash, sol.TransactionPayer(req.Caller))
	if err != nil {
		return program.Receipt{}, fmt.Errorf("build transaction: %w", err)
	}
	if _, err := tx.Sign(func(pub sol.PublicKey) *sol.PrivateKey {
		if pub.Equals(cl.payer.PublicKey()) {
			return cl.payer
		}
		return nil
	}); err != nil {
		return program.Receipt{}, fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := cl.send(ctx, tx)
	if err != nil {
		return program.Receipt{}, err
	}
	slot, err := cl.confirm(ctx, sig)
	if err != nil {
		return program.Receipt{}, err
	}
	cl.log.Info("initialize confirmed",
		zap.String("event", "rpc_initialize"),
		zap.Stringer("signature", sig),
		zap.Uint64("slot", slot),
		zap.Int64("latency_ms", time.Since(start).Milliseconds()))
	return program.Receipt{Signature: sig, Slot: slot}, nil
}

// send retries only when the blockhash is not yet visible to the node;
// anything the program or runtime rejects is final.
func (cl *Client) send(ctx context.Context, tx *sol.Transaction) (sol.Signature, error) {
	var sig sol.Signature
	err := retry.Do(func() error {
		var rerr error
		sig, rerr = cl.c.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: cl.commitment,
		})
		if rerr == nil {
			return nil
		}
		var rpcErr *jsonrpc.RPCError
		if errors.As(rerr, &rpcErr) {
			if mapped := classify(rpcErr.Message, rpcErr.Data); mapped != nil {
				return retry.Unrecoverable(fmt.Errorf("%w: %s", mapped, rpcErr.Message))
			}
			if containsFold(rpcErr.Message, "blockhash not found") {
				return fmt.Errorf("blockhash not found, retrying: %w", rerr)
			}
			return retry.Unrecoverable(fmt.Errorf("send transaction: %w", rerr))
		}
		return fmt.Errorf("send transaction: %w", rerr)
	}, cl.retryOpts(ctx, cl.sendAttempts)...)
	return sig, err
}

// confirm polls the signature status until the configured commitment is
// reached or the transaction is reported failed.
func (cl *Client) confirm(ctx context.Context, sig sol.Signature) (uint64, error) {
	var slot uint64
	err := retry.Do(func() error {
		res, err := cl.c.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return err
		}
		if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
			return errNotConfirmed
		}
		st := res.Value[0]
		if st.Err != nil {
			if mapped := classify("", st.Err); mapped != nil {
				return retry.Unrecoverable(mapped)
			}
			return retry.Unrecoverable(fmt.Errorf("transaction %s failed: %v", sig, st.Err))
		}
		if reached(st.ConfirmationStatus, cl.commitment) {
			slot = st.Slot
			return nil
		}
		return errNotConfirmed
	}, cl.retryOpts(ctx, cl.confirmAttempts)...)
	if err != nil {
		return 0, fmt.Errorf("confirm %s: %w", sig, err)
	}
	return slot, nil
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return want != rpc.CommitmentFinalized
	case rpc.ConfirmationStatusProcessed:
		return want == rpc.CommitmentProcessed
	}
	return false
}
