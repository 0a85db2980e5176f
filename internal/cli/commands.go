package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/example/solyield/internal/cache"
	"github.com/example/solyield/internal/program"
	"github.com/example/solyield/internal/types"
	sol "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

var timeNow = time.Now

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewAddressCommand prints the derived global state address.
func NewAddressCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the global state address and bump",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := opts.programID()
			if err != nil {
				return err
			}
			addr, bump, err := program.DeriveGlobalStateAddress(pid)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				return printJSON(out, map[string]interface{}{
					"program_id": pid.String(),
					"address":    addr.String(),
					"bump":       bump,
				})
			}
			fmt.Fprintf(out, "Program:       %s\n", pid)
			fmt.Fprintf(out, "State address: %s\n", addr)
			fmt.Fprintf(out, "Bump:          %d\n", bump)
			return nil
		},
	}
}

// InitializeOptions holds flags for the initialize command.
type InitializeOptions struct {
	*RootOptions
	Keypair      string
	StateAddress string
}

// NewInitializeCommand creates the initialize command.
func NewInitializeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitializeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "initialize",
		Short: "Create the global state record, signed by the keypair",
		Long: `Create the global state record. The keypair is both payer and the
recorded authority. Fails if the record already exists.

Example:
  solyield initialize --keypair ~/.config/solana/id.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitialize(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Keypair, "keypair", "k", defaultKeypairPath(), "payer keypair file")
	cmd.Flags().StringVar(&opts.StateAddress, "state-address", "", "expected state address (checked against the derived one)")

	return cmd
}

func runInitialize(cmd *cobra.Command, opts *InitializeOptions) error {
	pid, err := opts.programID()
	if err != nil {
		return err
	}
	payer, err := sol.PrivateKeyFromSolanaKeygenFile(opts.Keypair)
	if err != nil {
		return fmt.Errorf("read keypair: %w", err)
	}
	req := program.InitializeRequest{Caller: payer.PublicKey()}
	if opts.StateAddress != "" {
		addr, err := sol.PublicKeyFromBase58(opts.StateAddress)
		if err != nil {
			return fmt.Errorf("invalid --state-address: %w", err)
		}
		req.StateAddress = &addr
	}

	p, err := opts.Dial(opts.RootOptions, pid, &payer)
	if err != nil {
		return err
	}
	rcpt, err := p.Initialize(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return printJSON(out, types.NewInitializeResponse(rcpt, req.Caller, p.Address()))
	}
	fmt.Fprintf(out, "Your transaction signature %s\n", rcpt.Signature)
	return nil
}

// NewStateCommand prints the decoded global state record.
func NewStateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the global state record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := opts.programID()
			if err != nil {
				return err
			}
			p, err := opts.Dial(opts, pid, nil)
			if err != nil {
				return err
			}
			st, err := p.State(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				return printJSON(out, types.NewStateResponse(p.Address(), *st, cache.SourceLedger, timeNow()))
			}
			fmt.Fprintf(out, "Address:         %s\n", p.Address())
			fmt.Fprintf(out, "Initialized:     %t\n", st.IsInitialized)
			fmt.Fprintf(out, "Authority:       %s\n", st.Authority)
			fmt.Fprintf(out, "Created at slot: %d\n", st.CreatedAtSlot)
			return nil
		},
	}
}
