package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestCreditDebit_BalanceIsSum(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Credit(ctx, "u1", 100, TypeEarn, "mission_reward", "mis_1"); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if _, err := svc.Credit(ctx, "u1", 50, TypeEarn, "mission_reward", "mis_2"); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if _, err := svc.Debit(ctx, "u1", 30, TypeRedeem, "reward_redemption", "rwd_1"); err != nil {
		t.Fatalf("Debit failed: %v", err)
	}

	balance, err := svc.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 120 {
		t.Errorf("Balance = %d, want 120", balance)
	}

	// Balance equals the sum of the raw transaction amounts.
	txs, err := svc.Transactions(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	var sum int64
	for _, tx := range txs {
		sum += tx.Amount
	}
	if sum != balance {
		t.Errorf("sum(amounts) = %d, balance = %d; ledger drifted", sum, balance)
	}
}

func TestDebit_InsufficientBalance(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Credit(ctx, "u1", 50, TypeEarn, "mission_reward", ""); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	_, err := svc.Debit(ctx, "u1", 51, TypeRedeem, "reward_redemption", "")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// A failed debit leaves the ledger untouched.
	balance, _ := svc.Balance(ctx, "u1")
	if balance != 50 {
		t.Errorf("Balance = %d, want 50", balance)
	}
}

func TestDebit_ExactBalance(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Credit(ctx, "u1", 50, TypeEarn, "mission_reward", ""); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if _, err := svc.Debit(ctx, "u1", 50, TypeRedeem, "reward_redemption", ""); err != nil {
		t.Fatalf("Debit of exact balance failed: %v", err)
	}

	balance, _ := svc.Balance(ctx, "u1")
	if balance != 0 {
		t.Errorf("Balance = %d, want 0", balance)
	}
}

func TestCreditDebit_RejectNonPositive(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Credit(ctx, "u1", 0, TypeEarn, "x", ""); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Credit(0): got %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.Credit(ctx, "u1", -10, TypeEarn, "x", ""); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Credit(-10): got %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.Debit(ctx, "u1", -10, TypeRedeem, "x", ""); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Debit(-10): got %v, want ErrInvalidAmount", err)
	}
}

func TestDebit_ConcurrentNeverOverdraws(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Credit(ctx, "u1", 100, TypeEarn, "mission_reward", ""); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	// 20 debits of 10 against a balance of 100: exactly 10 may succeed.
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Debit(ctx, "u1", 10, TypeRedeem, "reward_redemption", ""); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Errorf("%d debits succeeded, want 10", succeeded)
	}
	balance, _ := svc.Balance(ctx, "u1")
	if balance != 0 {
		t.Errorf("Balance = %d, want 0", balance)
	}
	if balance < 0 {
		t.Error("balance went negative under concurrency")
	}
}

func TestTransactions_NewestFirst(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	first, _ := svc.Credit(ctx, "u1", 10, TypeEarn, "a", "")
	second, _ := svc.Credit(ctx, "u1", 20, TypeEarn, "b", "")

	txs, err := svc.Transactions(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if txs[0].ID != second.ID || txs[1].ID != first.ID {
		t.Errorf("transactions not newest first: %v, %v", txs[0].ID, txs[1].ID)
	}
}
