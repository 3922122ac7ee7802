package dex

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestSwapDecoderDecode(t *testing.T) {
	decoder, err := NewSwapDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	pool := common.HexToAddress("0x90e7a93e0a6514cb0c84fc7acc1cb5c0793352d2")
	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	recipient := common.HexToAddress("0x3333333333333333333333333333333333333333")

	amount0, _ := new(big.Int).SetString("-500000000000000000000", 10)
	sqrtPrice, _ := new(big.Int).SetString("79228162514264337593543950336", 10)
	data := packSwap(t, amount0, big.NewInt(250000000000000000), sqrtPrice, big.NewInt(987654321), big.NewInt(-15))

	log := buildSwapLog(pool, decoder.Topic0(), data, sender, recipient)

	event, err := decoder.Decode(log)
	if err != nil {
		t.Fatalf("decode swap: %v", err)
	}

	if event.Amount0.String() != "-500000000000000000000" || event.Amount1.String() != "250000000000000000" {
		t.Fatalf("amounts mismatch: %+v", event)
	}
	if event.SqrtPriceX96.Cmp(sqrtPrice) != 0 || event.Liquidity.String() != "987654321" {
		t.Fatalf("price state mismatch: %+v", event)
	}
	if event.Tick != -15 {
		t.Fatalf("tick mismatch: %d", event.Tick)
	}
	if event.Sender != sender || event.Recipient != recipient {
		t.Fatalf("address mismatch")
	}
	if event.Pool != pool || event.TxHash != log.TxHash || event.BlockHash != log.BlockHash || event.TxIndex != 3 {
		t.Fatalf("log metadata mismatch: %+v", event)
	}
}

func TestSwapDecoderRejectsForeignTopic(t *testing.T) {
	decoder, err := NewSwapDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	log := buildSwapLog(common.Address{}, common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"), nil, common.Address{}, common.Address{})
	if _, err := decoder.Decode(log); !errors.Is(err, ErrUnsupportedTopic) {
		t.Fatalf("expected ErrUnsupportedTopic, got %v", err)
	}

	if _, err := decoder.Decode(types.Log{}); err == nil {
		t.Fatalf("expected error for missing topics")
	}
}

func TestSwapDecoderRejectsMalformedPayload(t *testing.T) {
	decoder, err := NewSwapDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	log := buildSwapLog(common.Address{}, decoder.Topic0(), []byte{0x01, 0x02}, common.Address{}, common.Address{})
	if _, err := decoder.Decode(log); err == nil {
		t.Fatalf("expected error for short data")
	}

	data := packSwap(t, big.NewInt(1), big.NewInt(1), big.NewInt(1), big.NewInt(1), big.NewInt(1))
	log = buildSwapLog(common.Address{}, decoder.Topic0(), data, common.Address{}, common.Address{})
	log.Topics = log.Topics[:2]
	if _, err := decoder.Decode(log); err == nil {
		t.Fatalf("expected error for missing recipient topic")
	}
}

func packSwap(t *testing.T, amount0, amount1, sqrtPrice, liquidity, tick *big.Int) []byte {
	t.Helper()
	poolABI, err := V3PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	data, err := poolABI.Events["Swap"].Inputs.NonIndexed().Pack(amount0, amount1, sqrtPrice, liquidity, tick)
	if err != nil {
		t.Fatalf("pack swap: %v", err)
	}
	return data
}

func buildSwapLog(pool common.Address, topic0 common.Hash, data []byte, sender, recipient common.Address) types.Log {
	return types.Log{
		Address:     pool,
		Topics:      []common.Hash{topic0, topicFromAddress(sender), topicFromAddress(recipient)},
		Data:        data,
		BlockNumber: 12345,
		BlockHash:   common.HexToHash("0xabc"),
		TxHash:      common.HexToHash("0xdef"),
		TxIndex:     3,
		Index:       1,
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}
