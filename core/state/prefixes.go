package state

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	accountPrefix      = []byte("account:")
	listingPrefix      = []byte("listing:")
	listingSeqPrefix   = []byte("listing-seq:")
	openListingPrefix  = []byte("listing-open:")
	escrowPrefix       = []byte("escrow:")
	escrowIndexPrefix  = []byte("escrow-index:")
	objectPrefix       = []byte("object:")
	catalogPrefix      = []byte("catalog:")
	catalogIndexPrefix = []byte("catalog-index:")
)

func hashKey(parts ...[]byte) []byte {
	return ethcrypto.Keccak256(parts...)
}

func sequenceBytes(sequence uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], sequence)
	return buf[:]
}

func accountKey(addr [20]byte) []byte {
	return hashKey(accountPrefix, addr[:])
}

func listingKey(seller [20]byte, sequence uint64) []byte {
	return hashKey(listingPrefix, seller[:], sequenceBytes(sequence))
}

func listingSeqKey(seller [20]byte) []byte {
	return hashKey(listingSeqPrefix, seller[:])
}

func openListingKey(seller, object [20]byte) []byte {
	return hashKey(openListingPrefix, seller[:], object[:])
}

func escrowKey(key [32]byte) []byte {
	return hashKey(escrowPrefix, key[:])
}

func escrowIndexKey(bidder [20]byte) []byte {
	return hashKey(escrowIndexPrefix, bidder[:])
}

func objectKey(addr [20]byte) []byte {
	return hashKey(objectPrefix, addr[:])
}

func catalogKey(host, seller [20]byte, sequence uint64) []byte {
	return hashKey(catalogPrefix, host[:], seller[:], sequenceBytes(sequence))
}

func catalogIndexKey(host, seller [20]byte) []byte {
	return hashKey(catalogIndexPrefix, host[:], seller[:])
}
