package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

type chainIDService struct {
	id int64
}

func (s chainIDService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(s.id))
}

func TestClientChainID(t *testing.T) {
	server := rpc.NewServer()
	t.Cleanup(server.Stop)
	require.NoError(t, server.RegisterName("eth", chainIDService{id: 1}))

	client := newClient(rpc.DialInProc(server))
	t.Cleanup(client.Close)

	id, err := client.GetChainID(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), id.Int64())
}
