package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"swapwatch/internal/model"
)

// Client wraps a long-lived go-ethereum RPC session.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
}

// NewClient dials the node. A ws:// or wss:// URL is required for subscriptions.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return newClient(rpcClient), nil
}

func newClient(rpcClient *rpc.Client) *Client {
	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
	}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// SubscribeFilterLogs streams logs matching the query into ch.
func (c *Client) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return c.ethClient.SubscribeFilterLogs(ctx, query, ch)
}

// TransactionParties resolves the sender and receiver of a transaction.
// blockHash and txIndex come from the log and let the node-reported sender be
// reused instead of recovering it from the signature.
func (c *Client) TransactionParties(ctx context.Context, txHash, blockHash common.Hash, txIndex uint) (model.Parties, error) {
	tx, _, err := c.ethClient.TransactionByHash(ctx, txHash)
	if err != nil {
		return model.Parties{}, fmt.Errorf("get transaction %s: %w", txHash.Hex(), err)
	}

	from, err := c.ethClient.TransactionSender(ctx, tx, blockHash, txIndex)
	if err != nil {
		from, err = types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
		if err != nil {
			return model.Parties{}, fmt.Errorf("recover sender %s: %w", txHash.Hex(), err)
		}
	}

	parties := model.Parties{From: from.Hex()}
	if to := tx.To(); to != nil {
		parties.To = to.Hex()
	}
	return parties, nil
}
