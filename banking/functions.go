package banking

import (
	"context"
	"errors"
	"fmt"

	"github.com/room4-2/agentbridge/functions"
)

// Functions exposes the ledger operations to the agent.
func Functions(l *Ledger) []functions.Function {
	return []functions.Function{
		&functions.Func{
			FuncName: "get_account_info",
			Desc:     "Retrieve detailed information about a specific bank account.",
			Schema:   accountOnlySchema,
			Fn:       l.getAccountInfo,
		},
		&functions.Func{
			FuncName: "transfer_funds",
			Desc:     "Transfer funds between two accounts.",
			Schema:   transferSchema,
			Fn:       l.transferFunds,
		},
		&functions.Func{
			FuncName: "get_transaction_history",
			Desc:     "Retrieve recent transaction history for an account.",
			Schema:   historySchema,
			Fn:       l.getTransactionHistory,
		},
		&functions.Func{
			FuncName: "add_beneficiary",
			Desc:     "Add a new beneficiary to a user's account.",
			Schema:   beneficiarySchema,
			Fn:       l.addBeneficiary,
		},
		&functions.Func{
			FuncName: "manage_card",
			Desc:     "Block or activate a debit/credit card.",
			Schema:   cardSchema,
			Fn:       l.manageCard,
		},
		&functions.Func{
			FuncName: "pay_bill",
			Desc:     "Pay a bill from the user's account.",
			Schema:   billSchema,
			Fn:       l.payBill,
		},
	}
}

type AccountInfo struct {
	AccountNumber string  `json:"account_number"`
	AccountName   string  `json:"account_name"`
	AccountType   string  `json:"account_type"`
	Balance       float64 `json:"balance"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	BankName      string  `json:"bank_name"`
}

type TransferResult struct {
	TransactionID int64   `json:"transaction_id"`
	FromAccount   string  `json:"from_account"`
	ToAccount     string  `json:"to_account"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	FromBalance   float64 `json:"from_account_balance"`
	ToBalance     float64 `json:"to_account_balance"`
	Message       string  `json:"message"`
}

type HistoryResult struct {
	AccountNumber      string        `json:"account_number"`
	AccountName        string        `json:"account_name"`
	RecentTransactions []Transaction `json:"recent_transactions"`
}

type BeneficiaryResult struct {
	Message       string        `json:"message"`
	Beneficiaries []Beneficiary `json:"beneficiaries"`
}

type MessageResult struct {
	Message string `json:"message"`
}

type BillResult struct {
	TransactionID    int64   `json:"transaction_id"`
	Reference        string  `json:"reference"`
	Message          string  `json:"message"`
	RemainingBalance float64 `json:"remaining_balance"`
}

func (l *Ledger) getAccountInfo(_ context.Context, args functions.Args) (any, error) {
	number := args.String("account_number")
	acc, err := l.Snapshot(number)
	if err != nil {
		return functions.Errorf("Account '%s' not found.", number), nil
	}
	return AccountInfo{
		AccountNumber: number,
		AccountName:   acc.Name,
		AccountType:   acc.Type,
		Balance:       acc.Balance,
		Currency:      acc.Currency,
		Status:        acc.Status,
		BankName:      acc.BankName,
	}, nil
}

func (l *Ledger) transferFunds(_ context.Context, args functions.Args) (any, error) {
	from := args.String("from_account")
	to := args.String("to_account")
	amount := args.Float("amount")

	receipt, err := l.Transfer(from, to, amount, args.StringOr("narration", "Funds Transfer"))
	switch {
	case err == nil:
	case errors.Is(err, ErrAccountNotFound):
		if _, found := l.accounts[from]; !found {
			return functions.Errorf("Sender account '%s' not found.", from), nil
		}
		return functions.Errorf("Receiver account '%s' not found.", to), nil
	case errors.Is(err, ErrAccountInactive):
		return functions.Errorf("Sender account '%s' is not active.", from), nil
	case errors.Is(err, ErrInsufficientBalance):
		return functions.Errorf("Insufficient balance."), nil
	default:
		return nil, err
	}

	return TransferResult{
		TransactionID: receipt.TransactionID,
		FromAccount:   from,
		ToAccount:     to,
		Amount:        amount,
		Currency:      receipt.Currency,
		FromBalance:   receipt.FromBalance,
		ToBalance:     receipt.ToBalance,
		Message:       fmt.Sprintf("%s successfully transferred from %s to %s.", l.FormatAmount(amount), from, to),
	}, nil
}

func (l *Ledger) getTransactionHistory(_ context.Context, args functions.Args) (any, error) {
	number := args.String("account_number")
	acc, txns, err := l.History(number, args.IntOr("limit", 5))
	if err != nil {
		return functions.Errorf("Account '%s' not found.", number), nil
	}
	return HistoryResult{
		AccountNumber:      number,
		AccountName:        acc.Name,
		RecentTransactions: txns,
	}, nil
}

func (l *Ledger) addBeneficiary(_ context.Context, args functions.Args) (any, error) {
	number := args.String("account_number")
	b := Beneficiary{
		Name:          args.String("beneficiary_name"),
		AccountNumber: args.String("beneficiary_account"),
		BankName:      args.String("beneficiary_bank"),
	}
	list, err := l.AddBeneficiary(number, b)
	switch {
	case err == nil:
	case errors.Is(err, ErrAccountNotFound):
		return functions.Errorf("Account '%s' not found.", number), nil
	case errors.Is(err, ErrDuplicateBeneficiary):
		return functions.Errorf("Beneficiary '%s' already exists.", b.AccountNumber), nil
	default:
		return nil, err
	}
	return BeneficiaryResult{
		Message:       fmt.Sprintf("Beneficiary '%s' added successfully.", b.Name),
		Beneficiaries: list,
	}, nil
}

func (l *Ledger) manageCard(_ context.Context, args functions.Args) (any, error) {
	number := args.String("account_number")
	last4 := args.String("card_last4")
	status, err := l.SetCardStatus(number, last4, args.String("action"))
	switch {
	case err == nil:
	case errors.Is(err, ErrAccountNotFound):
		return functions.Errorf("Account '%s' not found.", number), nil
	case errors.Is(err, ErrInvalidCardAction):
		return functions.Errorf("Invalid action. Use 'block' or 'activate'."), nil
	case errors.Is(err, ErrCardNotFound):
		return functions.Errorf("Card ending with %s not found for account %s.", last4, number), nil
	default:
		return nil, err
	}
	verb := "activated"
	if status == "blocked" {
		verb = "blocked"
	}
	return MessageResult{Message: fmt.Sprintf("Card ending with %s has been %s.", last4, verb)}, nil
}

func (l *Ledger) payBill(_ context.Context, args functions.Args) (any, error) {
	number := args.String("account_number")
	biller := args.String("biller_name")
	billType := args.String("bill_type")
	amount := args.Float("amount")

	receipt, err := l.PayBill(number, biller, billType, amount, args.String("reference"))
	switch {
	case err == nil:
	case errors.Is(err, ErrAccountNotFound):
		return functions.Errorf("Account '%s' not found.", number), nil
	case errors.Is(err, ErrInsufficientBalance):
		return functions.Errorf("Insufficient balance to pay the bill."), nil
	default:
		return nil, err
	}
	return BillResult{
		TransactionID:    receipt.TransactionID,
		Reference:        receipt.Reference,
		Message:          fmt.Sprintf("%s %s bill payment to %s completed successfully.", l.FormatAmount(amount), billType, biller),
		RemainingBalance: receipt.RemainingBalance,
	}, nil
}

const accountOnlySchema = `{
	"type": "object",
	"properties": {
		"account_number": {"type": "string", "description": "The 10 digit account number."}
	},
	"required": ["account_number"]
}`

const transferSchema = `{
	"type": "object",
	"properties": {
		"from_account": {"type": "string", "description": "Account number to debit."},
		"to_account": {"type": "string", "description": "Account number to credit."},
		"amount": {"type": "number", "minimum": 0.01, "description": "Amount in naira."},
		"narration": {"type": "string", "description": "Optional transfer description."}
	},
	"required": ["from_account", "to_account", "amount"]
}`

const historySchema = `{
	"type": "object",
	"properties": {
		"account_number": {"type": "string", "description": "The 10 digit account number."},
		"limit": {"type": "integer", "minimum": 1, "description": "How many recent transactions to return. Defaults to 5."}
	},
	"required": ["account_number"]
}`

const beneficiarySchema = `{
	"type": "object",
	"properties": {
		"account_number": {"type": "string", "description": "The caller's account number."},
		"beneficiary_name": {"type": "string"},
		"beneficiary_account": {"type": "string"},
		"beneficiary_bank": {"type": "string"}
	},
	"required": ["account_number", "beneficiary_name", "beneficiary_account", "beneficiary_bank"]
}`

const cardSchema = `{
	"type": "object",
	"properties": {
		"account_number": {"type": "string"},
		"card_last4": {"type": "string", "description": "Last four digits of the card."},
		"action": {"type": "string", "description": "Either 'block' or 'activate'."}
	},
	"required": ["account_number", "card_last4", "action"]
}`

const billSchema = `{
	"type": "object",
	"properties": {
		"account_number": {"type": "string"},
		"biller_name": {"type": "string"},
		"amount": {"type": "number", "minimum": 0.01},
		"bill_type": {"type": "string", "description": "For example electricity, cable or airtime."},
		"reference": {"type": "string", "description": "Optional customer reference with the biller."}
	},
	"required": ["account_number", "biller_name", "amount", "bill_type"]
}`
