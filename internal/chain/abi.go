package chain

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const marketABIJSON = `[
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "asset", "type": "address"}], "name": "getPosition", "outputs": [{"name": "supplied", "type": "uint256"}, {"name": "borrowed", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}], "name": "totalSupplied", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}], "name": "totalBorrowed", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}], "name": "getAccumulators", "outputs": [
    {"name": "depositValue", "type": "uint256"},
    {"name": "depositUpdated", "type": "uint64"},
    {"name": "borrowValue", "type": "uint256"},
    {"name": "borrowUpdated", "type": "uint64"}
  ], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}, {"name": "amount", "type": "uint256"}, {"name": "onBehalfOf", "type": "address"}], "name": "deposit", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}, {"name": "amount", "type": "uint256"}, {"name": "onBehalfOf", "type": "address"}, {"name": "secret", "type": "bytes32"}, {"name": "nonce", "type": "uint256"}, {"name": "fromPublic", "type": "bool"}], "name": "depositPrivate", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}, {"name": "amount", "type": "uint256"}, {"name": "recipient", "type": "address"}], "name": "withdraw", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}, {"name": "amount", "type": "uint256"}, {"name": "recipient", "type": "address"}, {"name": "secret", "type": "bytes32"}], "name": "withdrawPrivate", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}, {"name": "amount", "type": "uint256"}, {"name": "recipient", "type": "address"}], "name": "borrow", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}, {"name": "amount", "type": "uint256"}, {"name": "recipient", "type": "address"}, {"name": "secret", "type": "bytes32"}], "name": "borrowPrivate", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}, {"name": "amount", "type": "uint256"}, {"name": "onBehalfOf", "type": "address"}], "name": "repay", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}, {"name": "amount", "type": "uint256"}, {"name": "onBehalfOf", "type": "address"}, {"name": "secret", "type": "bytes32"}, {"name": "nonce", "type": "uint256"}, {"name": "fromPublic", "type": "bool"}], "name": "repayPrivate", "outputs": [], "stateMutability": "nonpayable", "type": "function"}
]`

const tokenABIJSON = `[
  {"inputs": [{"name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "account", "type": "address"}], "name": "privateBalanceOf", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "spender", "type": "address"}, {"name": "amount", "type": "uint256"}, {"name": "nonce", "type": "uint256"}], "name": "authorize", "outputs": [], "stateMutability": "nonpayable", "type": "function"}
]`

const oracleABIJSON = `[
  {"inputs": [], "name": "latestPrice", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

var (
	marketABI     abi.ABI
	marketABIOnce sync.Once
	marketABIErr  error

	tokenABI     abi.ABI
	tokenABIOnce sync.Once
	tokenABIErr  error

	oracleABI     abi.ABI
	oracleABIOnce sync.Once
	oracleABIErr  error
)

// MarketABI returns the parsed lending market ABI.
func MarketABI() (abi.ABI, error) {
	marketABIOnce.Do(func() {
		marketABI, marketABIErr = abi.JSON(strings.NewReader(marketABIJSON))
	})
	return marketABI, marketABIErr
}

// TokenABI returns the parsed token ABI with public and private balances.
func TokenABI() (abi.ABI, error) {
	tokenABIOnce.Do(func() {
		tokenABI, tokenABIErr = abi.JSON(strings.NewReader(tokenABIJSON))
	})
	return tokenABI, tokenABIErr
}

// OracleABI returns the parsed price feed ABI.
func OracleABI() (abi.ABI, error) {
	oracleABIOnce.Do(func() {
		oracleABI, oracleABIErr = abi.JSON(strings.NewReader(oracleABIJSON))
	})
	return oracleABI, oracleABIErr
}
