package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/fachebot/cross-swap-api/internal/svc"
	"github.com/fachebot/cross-swap-api/internal/swapapi"

	"github.com/spf13/cobra"
)

var (
	quoteFlow   string
	quoteParams swapapi.Params
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Quote a single cross swap and print the response as JSON",
	RunE:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	flags := quoteCmd.Flags()
	flags.StringVar(&quoteFlow, "flow", string(swapapi.FlowApproval), "submission flow: approval, permit or auth")
	flags.StringVar(&quoteParams.Amount, "amount", "", "amount in the token's smallest unit")
	flags.StringVar(&quoteParams.TradeType, "trade-type", "", "exactInput, exactOutput or minOutput")
	flags.StringVar(&quoteParams.InputToken, "input-token", "", "input token address or symbol")
	flags.StringVar(&quoteParams.OutputToken, "output-token", "", "output token address or symbol")
	flags.StringVar(&quoteParams.OriginChainId, "origin-chain", "", "origin chain id")
	flags.StringVar(&quoteParams.DestinationChainId, "destination-chain", "", "destination chain id")
	flags.StringVar(&quoteParams.Depositor, "depositor", "", "depositor address")
	flags.StringVar(&quoteParams.Recipient, "recipient", "", "recipient address")
	flags.StringVar(&quoteParams.IntegratorId, "integrator-id", "", "2-byte integrator id, 0x prefixed")
	flags.StringVar(&quoteParams.SlippageTolerance, "slippage", "", "slippage tolerance in percent")
	flags.StringVar(&quoteParams.IncludeSources, "include-sources", "", "comma separated venues to use")
	flags.StringVar(&quoteParams.ExcludeSources, "exclude-sources", "", "comma separated venues to skip")
	flags.StringVar(&quoteParams.AppFee, "app-fee", "", "app fee in percent")
	flags.StringVar(&quoteParams.AppFeeRecipient, "app-fee-recipient", "", "app fee recipient")
	flags.StringVar(&quoteParams.SkipOriginTxEstimation, "skip-estimation", "", "skip origin gas estimation")
}

func runQuote(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Server.RequestTimeout)
	defer cancel()

	svcCtx, err := svc.NewServiceContext(ctx, c)
	if err != nil {
		return err
	}
	defer svcCtx.Close()

	resp, err := swapapi.NewService(svcCtx).Handle(ctx, swapapi.Flow(quoteFlow), quoteParams)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}
