// Package banking is the demo back office the phone agent talks to: an
// in-memory ledger of accounts and the functions that operate on it.
package banking

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountInactive      = errors.New("account not active")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrCardNotFound         = errors.New("card not found")
	ErrInvalidCardAction    = errors.New("invalid card action")
	ErrDuplicateBeneficiary = errors.New("beneficiary already exists")
)

const firstTransactionID = 5001

type Card struct {
	CardType string `json:"card_type"`
	Last4    string `json:"card_last4"`
	Expiry   string `json:"expiry"`
	Status   string `json:"status"`
}

type Transaction struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type Beneficiary struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
}

type Account struct {
	Number        string
	Name          string
	Type          string
	Balance       float64
	Currency      string
	Status        string
	BankName      string
	Cards         []Card
	Transactions  []Transaction
	Beneficiaries []Beneficiary
}

type account struct {
	mu   sync.Mutex
	data Account
}

// Ledger is a concurrency-safe account store. The set of accounts is fixed
// at construction; each account is guarded by its own lock.
type Ledger struct {
	accounts map[string]*account
	nextTxn  atomic.Int64
	now      func() time.Time
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithClock overrides the time source used to date transactions.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger builds a ledger from a snapshot of accounts.
func NewLedger(accounts []Account, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		accounts: make(map[string]*account, len(accounts)),
		now:      time.Now,
	}
	for _, a := range accounts {
		l.accounts[a.Number] = &account{data: a}
	}
	l.nextTxn.Store(firstTransactionID)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Snapshot returns a copy of an account.
func (l *Ledger) Snapshot(number string) (Account, error) {
	acc, ok := l.accounts[number]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, number)
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()

	snap := acc.data
	snap.Cards = append([]Card(nil), acc.data.Cards...)
	snap.Transactions = append([]Transaction(nil), acc.data.Transactions...)
	snap.Beneficiaries = append([]Beneficiary(nil), acc.data.Beneficiaries...)
	return snap, nil
}

// TransferReceipt is the outcome of Transfer.
type TransferReceipt struct {
	TransactionID int64
	FromBalance   float64
	ToBalance     float64
	Currency      string
}

// Transfer moves amount between two accounts atomically.
func (l *Ledger) Transfer(from, to string, amount float64, narration string) (TransferReceipt, error) {
	sender, ok := l.accounts[from]
	if !ok {
		return TransferReceipt{}, fmt.Errorf("sender %w: %s", ErrAccountNotFound, from)
	}
	receiver, ok := l.accounts[to]
	if !ok {
		return TransferReceipt{}, fmt.Errorf("receiver %w: %s", ErrAccountNotFound, to)
	}

	unlock := lockPair(sender, receiver, from, to)
	defer unlock()

	if sender.data.Status != "active" {
		return TransferReceipt{}, fmt.Errorf("sender %w: %s", ErrAccountInactive, from)
	}
	if sender.data.Balance < amount {
		return TransferReceipt{}, ErrInsufficientBalance
	}

	sender.data.Balance -= amount
	receiver.data.Balance += amount

	id := l.nextTxn.Add(1) - 1
	date := l.today()
	sender.data.Transactions = append(sender.data.Transactions, Transaction{
		ID:          id,
		Date:        date,
		Type:        "transfer_out",
		Amount:      amount,
		Description: fmt.Sprintf("Transfer to %s - %s", to, narration),
	})
	receiver.data.Transactions = append(receiver.data.Transactions, Transaction{
		ID:          id,
		Date:        date,
		Type:        "transfer_in",
		Amount:      amount,
		Description: fmt.Sprintf("Transfer from %s - %s", from, narration),
	})

	return TransferReceipt{
		TransactionID: id,
		FromBalance:   sender.data.Balance,
		ToBalance:     receiver.data.Balance,
		Currency:      sender.data.Currency,
	}, nil
}

// History returns the last limit transactions of an account, oldest first.
func (l *Ledger) History(number string, limit int) (Account, []Transaction, error) {
	snap, err := l.Snapshot(number)
	if err != nil {
		return Account{}, nil, err
	}
	txns := snap.Transactions
	if limit >= 0 && len(txns) > limit {
		txns = txns[len(txns)-limit:]
	}
	return snap, txns, nil
}

// AddBeneficiary appends a beneficiary unless the account number is
// already saved.
func (l *Ledger) AddBeneficiary(number string, b Beneficiary) ([]Beneficiary, error) {
	acc, ok := l.accounts[number]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, number)
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()

	for _, existing := range acc.data.Beneficiaries {
		if existing.AccountNumber == b.AccountNumber {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBeneficiary, b.AccountNumber)
		}
	}
	acc.data.Beneficiaries = append(acc.data.Beneficiaries, b)
	return append([]Beneficiary(nil), acc.data.Beneficiaries...), nil
}

// SetCardStatus blocks or activates a linked card.
func (l *Ledger) SetCardStatus(number, last4, action string) (string, error) {
	acc, ok := l.accounts[number]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrAccountNotFound, number)
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()

	for i := range acc.data.Cards {
		card := &acc.data.Cards[i]
		if card.Last4 != last4 {
			continue
		}
		switch action {
		case "block":
			card.Status = "blocked"
		case "activate":
			card.Status = "active"
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidCardAction, action)
		}
		return card.Status, nil
	}
	return "", fmt.Errorf("%w: %s", ErrCardNotFound, last4)
}

// BillReceipt is the outcome of PayBill.
type BillReceipt struct {
	TransactionID    int64
	Reference        string
	RemainingBalance float64
}

// PayBill debits a bill payment. An empty reference is replaced by a
// generated one.
func (l *Ledger) PayBill(number, biller, billType string, amount float64, reference string) (BillReceipt, error) {
	acc, ok := l.accounts[number]
	if !ok {
		return BillReceipt{}, fmt.Errorf("%w: %s", ErrAccountNotFound, number)
	}
	if reference == "" {
		ref, err := nanoid.Generate("ABCDEFGHJKLMNPQRSTUVWXYZ23456789", 10)
		if err != nil {
			return BillReceipt{}, fmt.Errorf("generate bill reference: %w", err)
		}
		reference = ref
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if acc.data.Balance < amount {
		return BillReceipt{}, ErrInsufficientBalance
	}
	acc.data.Balance -= amount
	id := l.nextTxn.Add(1) - 1
	acc.data.Transactions = append(acc.data.Transactions, Transaction{
		ID:          id,
		Date:        l.today(),
		Type:        "bill_payment",
		Amount:      amount,
		Description: fmt.Sprintf("%s bill to %s (Ref: %s)", cases.Title(language.English).String(billType), biller, reference),
	})
	return BillReceipt{
		TransactionID:    id,
		Reference:        reference,
		RemainingBalance: acc.data.Balance,
	}, nil
}

// FormatAmount renders an amount the way the agent reads it out, e.g.
// "₦1,000.00".
func (l *Ledger) FormatAmount(amount float64) string {
	p := message.NewPrinter(language.English)
	return "₦" + p.Sprint(number.Decimal(amount, number.Scale(2)))
}

func (l *Ledger) today() string {
	return l.now().Format("2006-01-02")
}

// lockPair locks two accounts in account-number order so concurrent
// transfers in opposite directions cannot deadlock.
func lockPair(a, b *account, aNum, bNum string) func() {
	if a == b {
		a.mu.Lock()
		return a.mu.Unlock
	}
	ordered := []struct {
		num string
		acc *account
	}{{aNum, a}, {bNum, b}}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].num < ordered[j].num })
	ordered[0].acc.mu.Lock()
	ordered[1].acc.mu.Lock()
	return func() {
		ordered[1].acc.mu.Unlock()
		ordered[0].acc.mu.Unlock()
	}
}
