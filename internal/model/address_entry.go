package model

import "github.com/ethereum/go-ethereum/common"

// AddressEntry is a derived shielded identity and the secret it was derived
// from, scoped to one owning public identity.
type AddressEntry struct {
	Identity common.Address `json:"identity"`
	Secret   common.Hash    `json:"secret"`
}
