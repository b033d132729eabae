package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"lendingScope/internal/refresh"
	"lendingScope/internal/txn"
)

func newTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Submit a lending operation",
	}
	for _, action := range []txn.Action{txn.ActionDeposit, txn.ActionWithdraw, txn.ActionBorrow, txn.ActionRepay} {
		cmd.AddCommand(newActionCmd(action))
	}
	return cmd
}

func newActionCmd(action txn.Action) *cobra.Command {
	cmd := &cobra.Command{
		Use:   action.String(),
		Short: fmt.Sprintf("Submit a %s", action),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTx(cmd, action)
		},
	}
	cmd.Flags().String("asset", "", "asset id")
	cmd.Flags().String("amount", "", "amount in asset units (e.g. 12.5)")
	cmd.Flags().Bool("private", false, "use the private variant")
	cmd.Flags().Bool("from-public", false, "fund a private deposit or repay from the public balance")
	cmd.Flags().String("recipient", "", "stored shielded identity to target")
	cmd.Flags().Bool("new-recipient", false, "derive and store a new shielded identity as target")
	return cmd
}

func buildRequest(cmd *cobra.Command, action txn.Action) (txn.Request, error) {
	assetID, _ := cmd.Flags().GetString("asset")
	amount, _ := cmd.Flags().GetString("amount")
	private, _ := cmd.Flags().GetBool("private")
	fromPublic, _ := cmd.Flags().GetBool("from-public")
	recipient, _ := cmd.Flags().GetString("recipient")
	newRecipient, _ := cmd.Flags().GetBool("new-recipient")

	if assetID == "" {
		return txn.Request{}, fmt.Errorf("asset is required")
	}
	req := txn.Request{
		Action:            action,
		AssetID:           assetID,
		Amount:            amount,
		FromPublicBalance: fromPublic,
	}
	if !private {
		if recipient != "" || newRecipient || fromPublic {
			return txn.Request{}, fmt.Errorf("recipient and funding flags require --private")
		}
		return req, nil
	}

	req.Visibility = txn.Private
	switch {
	case recipient != "" && newRecipient:
		return txn.Request{}, fmt.Errorf("--recipient and --new-recipient are exclusive")
	case recipient != "":
		if !common.IsHexAddress(recipient) {
			return txn.Request{}, fmt.Errorf("invalid recipient: %s", recipient)
		}
		req.Recipient = txn.RecipientStored
		req.StoredIdentity = common.HexToAddress(recipient)
	case newRecipient:
		req.Recipient = txn.RecipientNew
	}
	return req, nil
}

func runTx(cmd *cobra.Command, action txn.Action) error {
	req, err := buildRequest(cmd, action)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cmd, appNeeds{chain: true, store: req.Visibility == txn.Private})
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := a.coordinator.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh position: %w", err)
	}
	if outcome != refresh.OutcomeApplied {
		return fmt.Errorf("refresh position: %s", outcome)
	}

	res, err := a.orchestrator.Execute(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}
