package banking

// DemoAccounts is the starting state of the demo bank.
func DemoAccounts() []Account {
	return []Account{
		{
			Number:   "0012345678",
			Name:     "John Doe",
			Type:     "savings",
			Balance:  150000.50,
			Currency: "NGN",
			Status:   "active",
			BankName: "Udara Bank",
			Cards: []Card{
				{CardType: "debit", Last4: "1234", Expiry: "09/27", Status: "active"},
			},
			Transactions: []Transaction{
				{ID: 1001, Date: "2025-09-15", Type: "deposit", Amount: 50000, Description: "Salary Credit"},
				{ID: 1002, Date: "2025-09-20", Type: "withdrawal", Amount: 20000, Description: "ATM Withdrawal"},
				{ID: 1003, Date: "2025-09-28", Type: "transfer_out", Amount: 10000, Description: "Transfer to 0023456789"},
				{ID: 1004, Date: "2025-10-02", Type: "deposit", Amount: 30000, Description: "Transfer from 0034567890"},
			},
			Beneficiaries: []Beneficiary{
				{Name: "Jane Smith", AccountNumber: "0023456789", BankName: "GTBank"},
				{Name: "Michael Adams", AccountNumber: "0034567890", BankName: "UBA"},
			},
		},
		{
			Number:   "0023456789",
			Name:     "Jane Smith",
			Type:     "current",
			Balance:  245000.00,
			Currency: "NGN",
			Status:   "active",
			BankName: "GTBank",
			Cards: []Card{
				{CardType: "credit", Last4: "6789", Expiry: "03/26", Status: "active"},
			},
			Transactions: []Transaction{
				{ID: 2001, Date: "2025-09-12", Type: "deposit", Amount: 100000, Description: "Freelance Payment"},
				{ID: 2002, Date: "2025-09-15", Type: "transfer_in", Amount: 10000, Description: "Transfer from 0012345678"},
				{ID: 2003, Date: "2025-10-01", Type: "bill_payment", Amount: 15000, Description: "DSTV Subscription"},
			},
			Beneficiaries: []Beneficiary{
				{Name: "John Doe", AccountNumber: "0012345678", BankName: "Udara Bank"},
				{Name: "Samuel Peters", AccountNumber: "0045678901", BankName: "Access Bank"},
			},
		},
	}
}
