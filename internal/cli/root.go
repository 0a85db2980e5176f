// Package cli implements the solyield command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/solyield/internal/program"
	"github.com/example/solyield/internal/solana"
	sol "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Program is the part of a ledger backend the commands drive.
type Program interface {
	Address() sol.PublicKey
	Initialize(ctx context.Context, req program.InitializeRequest) (program.Receipt, error)
	State(ctx context.Context) (*program.GlobalState, error)
}

// Dialer connects to a backend. payer is nil for read-only commands.
type Dialer func(opts *RootOptions, programID sol.PublicKey, payer *sol.PrivateKey) (Program, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	URL        string
	ProgramID  string
	Commitment string
	Format     string // "json" | "text"
	Verbose    bool

	Dial Dialer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

func dialRPC(opts *RootOptions, programID sol.PublicKey, payer *sol.PrivateKey) (Program, error) {
	log := zap.NewNop()
	if opts.Verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		log = l
	}
	o := []solana.Option{solana.WithLogger(log)}
	if payer != nil {
		o = append(o, solana.WithPayer(*payer))
	}
	cl, err := solana.NewClient(opts.URL, opts.Commitment, programID, o...)
	if err != nil {
		return nil, err
	}
	return cl, nil
}

// programID parses --program-id, defaulting to the built-in program.
func (o *RootOptions) programID() (sol.PublicKey, error) {
	if o.ProgramID == "" {
		return program.ProgramID, nil
	}
	pk, err := sol.PublicKeyFromBase58(o.ProgramID)
	if err != nil {
		return sol.PublicKey{}, fmt.Errorf("invalid --program-id: %w", err)
	}
	return pk, nil
}

func defaultKeypairPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "solana", "id.json")
}

// NewRootCommand creates the root command for the solyield CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Dial: dialRPC}
	return newRootCommand(opts)
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solyield",
		Short: "Bootstrap and inspect the yield program's global state",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.URL, "url", "u", "http://127.0.0.1:8899", "JSON-RPC endpoint")
	cmd.PersistentFlags().StringVar(&opts.ProgramID, "program-id", "", "program id (defaults to the built-in id)")
	cmd.PersistentFlags().StringVar(&opts.Commitment, "commitment", "confirmed", "commitment level")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewAddressCommand(opts))
	cmd.AddCommand(NewInitializeCommand(opts))
	cmd.AddCommand(NewStateCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
