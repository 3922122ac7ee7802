package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapwatch/internal/model"
)

func sampleRecord(txHash string) model.SwapRecord {
	return model.SwapRecord{
		Pool:         model.PoolNWETH,
		Sender:       "0x1111111111111111111111111111111111111111",
		Recipient:    "0x2222222222222222222222222222222222222222",
		T0:           decimal.RequireFromString("500.00"),
		T1:           decimal.RequireFromString("0.25"),
		Price:        decimal.RequireFromString("1.00"),
		SqrtPriceX96: "79228162514264337593543950336",
		Liquidity:    "987654321",
		Tick:         -15,
		TxHash:       txHash,
		From:         "0x3333333333333333333333333333333333333333",
		To:           "0x4444444444444444444444444444444444444444",
		Dir0:         model.DirectionNegative,
		Dir1:         model.DirectionPositive,
	}
}

func TestAppendReadLatestRoundTrip(t *testing.T) {
	store := NewJsonlStorage(filepath.Join(t.TempDir(), "nested", "details.json"))
	original := sampleRecord("0xaaa")

	require.NoError(t, store.Append(original))
	require.NoError(t, store.Append(sampleRecord("0xbbb")))

	got, skipped, err := store.ReadLatest()
	require.NoError(t, err)
	require.Zero(t, skipped)

	require.Equal(t, original.T0.StringFixed(2), got.T0.StringFixed(2))
	require.Equal(t, original.T1.StringFixed(2), got.T1.StringFixed(2))
	require.Equal(t, original.Price.StringFixed(2), got.Price.StringFixed(2))
	got.T0, got.T1, got.Price = original.T0, original.T1, original.Price
	require.Equal(t, original, got)
}

func TestReadLatestSkipsDamagedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "details.json")
	valid, err := json.Marshal(sampleRecord("0xccc"))
	require.NoError(t, err)

	content := "\n\n{not json}\n   \n" + `{"pool":"0x1","t0":"1.00"` + "\n" + string(valid) + "\n" + `{"pool":"0x2","t0":"2.`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, skipped, err := NewJsonlStorage(path).ReadLatest()
	require.NoError(t, err)
	require.Equal(t, "0xccc", got.TxHash)
	require.Equal(t, 2, skipped)
}

func TestAppendWritesTickAsString(t *testing.T) {
	store := NewJsonlStorage(filepath.Join(t.TempDir(), "details.json"))
	require.NoError(t, store.Append(sampleRecord("0xeee")))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	require.Contains(t, string(data), `"tick":"-15"`)

	got, _, err := store.ReadLatest()
	require.NoError(t, err)
	require.Equal(t, int32(-15), got.Tick)
}

func TestReadLatestAcceptsLinesWithStringTick(t *testing.T) {
	path := filepath.Join(t.TempDir(), "details.json")
	line := `{"pool":"0x90e7a93e0a6514cb0c84fc7acc1cb5c0793352d2",` +
		`"sender":"0xE592427A0AEce92De3Edee1F18E0157C05861564",` +
		`"recipient":"0x2222222222222222222222222222222222222222",` +
		`"t0":"500.00","t1":"0.25","price":"1.00",` +
		`"sqrtPriceX96":"79228162514264337593543950336","liquidity":"1000000","tick":"-887",` +
		`"txHash":"0x7777","from":"0x1111111111111111111111111111111111111111","to":null,` +
		`"event":{"log":{"transactionHash":"0x7777"}}}`
	require.NoError(t, os.WriteFile(path, []byte("\n"+line), 0o644))

	got, skipped, err := NewJsonlStorage(path).ReadLatest()
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Equal(t, int32(-887), got.Tick)
	require.Equal(t, "0x7777", got.TxHash)
	require.Equal(t, "", got.To)
	require.Equal(t, "500.00", got.T0.StringFixed(2))
	require.Equal(t, model.DirectionUnknown, got.Dir0)
	require.True(t, got.Token0In())
}

func TestReadLatestEmpty(t *testing.T) {
	dir := t.TempDir()

	_, _, err := NewJsonlStorage(filepath.Join(dir, "missing.json")).ReadLatest()
	require.True(t, errors.Is(err, ErrNoRecords))

	path := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(path, []byte("\n{oops\n"), 0o644))
	_, skipped, err := NewJsonlStorage(path).ReadLatest()
	require.True(t, errors.Is(err, ErrNoRecords))
	require.Equal(t, 1, skipped)
}

func TestConcurrentAppendsKeepLinesWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "details.json")
	store := NewJsonlStorage(path)

	const writers = 64
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Append(sampleRecord(fmt.Sprintf("0x%04x", i))))
		}(i)
	}
	wg.Wait()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	seen := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record model.SwapRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		seen[record.TxHash] = true
	}
	require.NoError(t, scanner.Err())
	require.Len(t, seen, writers)
}

func TestAppendFailsOnDirectoryPath(t *testing.T) {
	store := NewJsonlStorage(t.TempDir())
	require.Error(t, store.Append(sampleRecord("0xddd")))
}
