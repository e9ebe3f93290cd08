// Package slp recognises SLP token scripts carried in OP_RETURN outputs,
// derives the token and coin records they describe, and exposes them to an
// overlay network through a topic manager and a lookup service.
package slp

import (
	"errors"
)

// Constants for SLP service configuration
const (
	// Topic is the topic manager topic for SLP outputs
	Topic = "tm_slp"
	// Service is the lookup service identifier for SLP
	Service = "ls_slp"
)

// Protocol type tags carried in field 3.
const (
	TypeGenesis = "GENESIS"
	TypeMint    = "MINT"
	TypeSend    = "SEND"
	TypeBurn    = "BURN"
	// TypeBaton only names a derived coin type; a script tagged with it is invalid.
	TypeBaton = "BATON"
)

// Field positions and sizes of the SLP grammar.
const (
	fieldLokad   = 1
	fieldVersion = 2
	fieldType    = 3
	fieldTokenID = 4

	genesisTicker   = 4
	genesisName     = 5
	genesisURI      = 6
	genesisDocHash  = 7
	genesisDecimals = 8
	genesisBaton    = 9
	genesisQuantity = 10
	genesisFields   = 11

	mintV1Baton         = 5
	mintV1Quantity      = 6
	mintV1Fields        = 7
	mintV2FirstQuantity = 5
	mintV2MinFields     = 6

	sendFirstValue = 5
	sendMinFields  = 6

	burnQuantity = 5
	burnFields   = 6

	amountSize = 8
	// minBatonIndex is the lowest output a mint baton may be sent to.
	minBatonIndex = 2
)

// LokadID is the 4-byte protocol identifier in field 1.
var LokadID = []byte{0x53, 0x4c, 0x50, 0x00}

// Static error variables for err113 compliance
var (
	ErrMalformedScript     = errors.New("malformed script")
	ErrInvalidScript       = errors.New("script is not a valid SLP script")
	ErrInvalidTxID         = errors.New("transaction id must be 32 bytes")
	ErrBatonType           = errors.New("BATON is not a top-level SLP type")
	ErrGenesisHasNoTokenID = errors.New("GENESIS scripts define a token id rather than reference one")
	ErrNoMarkerOutput      = errors.New("transaction has no SLP output")
	ErrNotFound            = errors.New("record not found")
	ErrCorruptRecord       = errors.New("stored record cannot be decoded")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidBatonIndex   = errors.New("mint baton output index must be at least 2")
)
