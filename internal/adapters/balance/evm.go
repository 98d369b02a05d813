package balance

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"portfoliotracker/internal/domain/currency"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ERC20 ABI minimal part for balanceOf
const erc20ABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`

var (
	parsedERC20ABI  abi.ABI
	parsedERC20Once sync.Once
)

func erc20() abi.ABI {
	parsedERC20Once.Do(func() {
		var err error
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
	})
	return parsedERC20ABI
}

// Backend is the subset of ethclient.Client used to read balances.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// EVMReader reads native and ERC-20 balances for one EVM chain.
type EVMReader struct {
	backend     Backend
	chainID     string
	callTimeout time.Duration
}

// DialEVM connects to an EVM JSON-RPC endpoint. chainID is the registry id of
// the chain's native coin, e.g. "ethereum".
func DialEVM(ctx context.Context, rpcURL, chainID string, callTimeout time.Duration) (*EVMReader, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}
	return NewEVMReader(client, chainID, callTimeout), nil
}

func NewEVMReader(backend Backend, chainID string, callTimeout time.Duration) *EVMReader {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &EVMReader{backend: backend, chainID: chainID, callTimeout: callTimeout}
}

// Supports reports whether c is the chain's native coin or a token issued on it.
func (r *EVMReader) Supports(c currency.Currency) bool {
	switch v := c.(type) {
	case currency.NativeCoin:
		return v.ID == r.chainID
	case currency.Token:
		return v.ParentChainID == r.chainID && common.IsHexAddress(v.Contract)
	default:
		return false
	}
}

func (r *EVMReader) Balance(ctx context.Context, address string, c currency.Currency) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid EVM address %q", address)
	}
	if !r.Supports(c) {
		return nil, fmt.Errorf("currency %s is not on chain %s", c.Info().ID, r.chainID)
	}

	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	owner := common.HexToAddress(address)

	token, ok := c.(currency.Token)
	if !ok {
		bal, err := r.backend.BalanceAt(ctx, owner, nil)
		if err != nil {
			return nil, fmt.Errorf("eth_getBalance for %s: %w", address, err)
		}
		return bal, nil
	}

	parsed := erc20()
	data, err := parsed.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
	}

	contract := common.HexToAddress(token.Contract)
	out, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s for %s: %w", token.Contract, address, err)
	}
	if len(out) == 0 {
		return big.NewInt(0), nil
	}

	unpacked, err := parsed.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf result for %s: %w", token.ID, err)
	}
	if len(unpacked) == 0 {
		return nil, fmt.Errorf("balanceOf unpack returned no data for %s", token.ID)
	}
	bal, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T for %s", unpacked[0], token.ID)
	}
	return bal, nil
}
