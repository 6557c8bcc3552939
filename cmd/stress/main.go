// Command stress fires concurrent transfers from one sender at a running
// server and checks that the balance floor held: exactly as many transfers
// succeed as the sender can afford, and no money is created or lost.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yashasviy/banco-solar-api/logging"
	"github.com/yashasviy/banco-solar-api/models"
)

const (
	// DefaultURL is the base URL of the API under test
	DefaultURL = "http://localhost:3000"

	// DefaultConcurrency is the number of concurrent transfers
	DefaultConcurrency = 50

	// DefaultAffordable is how many of those transfers the sender can pay for
	DefaultAffordable = 10

	// DefaultAmount is the amount of each transfer
	DefaultAmount = 10
)

// TestConfig holds the stress test configuration
type TestConfig struct {
	BaseURL            string
	ConcurrentRequests int
	Affordable         int
	Amount             decimal.Decimal
}

// TestResults tracks the outcomes of all requests
type TestResults struct {
	SuccessCount      int32
	InsufficientCount int32
	OtherCount        int32
	ErrorCount        int32
	Duration          time.Duration
}

type accountResponse struct {
	Usuario models.Account `json:"usuario"`
}

type listResponse struct {
	Usuarios []models.Account `json:"usuarios"`
}

var client = &http.Client{Timeout: 10 * time.Second}

func main() {
	var (
		config TestConfig
		amount float64
	)
	flag.StringVar(&config.BaseURL, "url", DefaultURL, "API base URL")
	flag.IntVar(&config.ConcurrentRequests, "concurrent", DefaultConcurrency, "Number of concurrent transfers")
	flag.IntVar(&config.Affordable, "affordable", DefaultAffordable, "Transfers the sender can afford")
	flag.Float64Var(&amount, "amount", DefaultAmount, "Amount of each transfer")
	flag.Parse()
	config.Amount = decimal.NewFromFloat(amount)

	logger, err := logging.New("info", "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Sugar()

	fmt.Println("  BANCO SOLAR - CONCURRENT TRANSFER STRESS TEST")

	opening := config.Amount.Mul(decimal.NewFromInt(int64(config.Affordable)))
	sender, err := createAccount(config.BaseURL, "stress-sender", opening)
	if err != nil {
		log.Fatalw("failed to create sender", zap.Error(err))
	}
	receiver, err := createAccount(config.BaseURL, "stress-receiver", decimal.Zero)
	if err != nil {
		log.Fatalw("failed to create receiver", zap.Error(err))
	}

	fmt.Printf("Endpoint:       %s/transferencia\n", config.BaseURL)
	fmt.Printf("Concurrency:    %d transfers\n", config.ConcurrentRequests)
	fmt.Printf("Payment:        $%s from account %d to account %d\n", config.Amount, sender.ID, receiver.ID)
	fmt.Printf("Opening:        $%s (affords %d)\n", opening, config.Affordable)
	fmt.Println("---------------------------------------------------------------")

	results := runStressTest(config, sender.ID, receiver.ID, log)

	final, err := listAccounts(config.BaseURL)
	if err != nil {
		log.Fatalw("failed to read final balances", zap.Error(err))
	}

	ok := printResults(config, results, opening, final[sender.ID], final[receiver.ID])

	for _, id := range []int64{sender.ID, receiver.ID} {
		if err := deleteAccount(config.BaseURL, id); err != nil {
			log.Warnw("cleanup failed", "id", id, zap.Error(err))
		}
	}

	if !ok {
		os.Exit(1)
	}
}

// runStressTest executes concurrent transfers and returns aggregated results
func runStressTest(config TestConfig, senderID, receiverID int64, log *zap.SugaredLogger) TestResults {
	var (
		results TestResults
		wg      sync.WaitGroup
		start   = time.Now()
	)

	fmt.Printf("\nLaunching %d concurrent transfers...\n", config.ConcurrentRequests)

	for i := 0; i < config.ConcurrentRequests; i++ {
		wg.Add(1)
		go func(requestID int) {
			defer wg.Done()
			executeTransfer(config, senderID, receiverID, requestID, &results, log)
		}(i)
	}

	wg.Wait()
	results.Duration = time.Since(start)

	return results
}

// executeTransfer sends a single transfer and updates results atomically
func executeTransfer(config TestConfig, senderID, receiverID int64, requestID int, results *TestResults, log *zap.SugaredLogger) {
	payload := models.TransferRequest{Sender: &senderID, Receiver: &receiverID, Amount: &config.Amount}

	resp, err := postJSON(config.BaseURL+"/transferencia", payload)
	if err != nil {
		log.Warnw("transfer request failed", "request", requestID, zap.Error(err))
		atomic.AddInt32(&results.ErrorCount, 1)
		return
	}
	defer resp.Body.Close()

	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch {
	case resp.StatusCode == http.StatusCreated:
		atomic.AddInt32(&results.SuccessCount, 1)
	case resp.StatusCode == http.StatusBadRequest && body.Message == "Sender lacks sufficient balance.":
		atomic.AddInt32(&results.InsufficientCount, 1)
	default:
		log.Warnw("unexpected response", "request", requestID, "status", resp.StatusCode, "message", body.Message)
		atomic.AddInt32(&results.OtherCount, 1)
	}
}

// printResults displays the outcome and reports whether the invariants held
func printResults(config TestConfig, results TestResults, opening, senderFinal, receiverFinal decimal.Decimal) bool {
	total := config.ConcurrentRequests
	expectedSuccess := config.Affordable
	if total < expectedSuccess {
		expectedSuccess = total
	}

	fmt.Println("                    TEST RESULTS")
	fmt.Printf("Duration:                     %v\n", results.Duration)
	fmt.Printf("Requests per second:          %.2f\n", float64(total)/results.Duration.Seconds())
	fmt.Printf("[SUCCESS]      Committed:          %d\n", results.SuccessCount)
	fmt.Printf("[REJECTED]     Insufficient funds: %d\n", results.InsufficientCount)
	fmt.Printf("[UNEXPECTED]   Other responses:    %d\n", results.OtherCount)
	fmt.Printf("[ERROR]        Network/timeouts:   %d\n", results.ErrorCount)
	fmt.Printf("Final balances: sender $%s, receiver $%s\n", senderFinal, receiverFinal)

	moved := config.Amount.Mul(decimal.NewFromInt(int64(results.SuccessCount)))
	passed := true

	if int(results.SuccessCount) != expectedSuccess {
		fmt.Printf("  * Expected %d committed transfers, got %d\n", expectedSuccess, results.SuccessCount)
		passed = false
	}
	if senderFinal.IsNegative() {
		fmt.Println("  * CRITICAL: sender balance went negative")
		passed = false
	}
	if !senderFinal.Add(receiverFinal).Equal(opening) {
		fmt.Println("  * CRITICAL: total balance changed")
		passed = false
	}
	if !receiverFinal.Equal(moved) {
		fmt.Printf("  * Receiver holds $%s, committed transfers moved $%s\n", receiverFinal, moved)
		passed = false
	}
	if results.ErrorCount > 0 || results.OtherCount > 0 {
		passed = false
	}

	if passed {
		fmt.Println("TEST PASSED: balance floor held under concurrency")
	} else {
		fmt.Println("TEST FAILED")
	}

	return passed
}

func createAccount(baseURL, name string, balance decimal.Decimal) (models.Account, error) {
	resp, err := postJSON(baseURL+"/usuario", models.AccountRequest{Name: &name, Balance: &balance})
	if err != nil {
		return models.Account{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return models.Account{}, fmt.Errorf("create account: unexpected status %d", resp.StatusCode)
	}

	var out accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Account{}, fmt.Errorf("decode account: %w", err)
	}

	return out.Usuario, nil
}

func listAccounts(baseURL string) (map[int64]decimal.Decimal, error) {
	resp, err := client.Get(baseURL + "/usuarios")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}

	balances := make(map[int64]decimal.Decimal, len(out.Usuarios))
	for _, acc := range out.Usuarios {
		balances[acc.ID] = acc.Balance
	}

	return balances, nil
}

func deleteAccount(baseURL string, id int64) error {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/usuario?id=%d", baseURL, id), nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete account %d: unexpected status %d", id, resp.StatusCode)
	}

	return nil
}

func postJSON(url string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return client.Do(req)
}
