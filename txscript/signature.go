// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

const (
	// minSigLen is the minimum length of a DER encoded signature without
	// the trailing hash type.
	//
	// 0x30 + <1-byte> + 0x02 + 0x01 + <byte> + 0x2 + 0x01 + <byte>
	minSigLen = 8

	// maxSigLen is the maximum length of a DER encoded signature without
	// the trailing hash type.
	//
	// 0x30 + <1-byte> + 0x02 + 0x21 + <33 bytes> + 0x2 + 0x21 + <33 bytes>
	maxSigLen = 72

	// sequenceOffset is the byte offset within the signature of the
	// expected ASN.1 sequence identifier.
	sequenceOffset = 0

	// dataLenOffset is the byte offset within the signature of the expected
	// total length of all remaining data in the signature.
	dataLenOffset = 1

	// rTypeOffset is the byte offset within the signature of the ASN.1
	// identifier for R and is expected to indicate an ASN.1 integer.
	rTypeOffset = 2

	// rLenOffset is the byte offset within the signature of the length of
	// R.
	rLenOffset = 3

	// rOffset is the byte offset within the signature of R.
	rOffset = 4

	// asn1SequenceID is the ASN.1 identifier for a sequence and is used
	// when parsing and validating DER signatures.
	asn1SequenceID = 0x30

	// asn1IntegerID is the ASN.1 identifier for an integer and is used
	// when parsing and validating DER signatures.
	asn1IntegerID = 0x02
)

// isLowS returns whether the big-endian S value of a DER signature is at most
// half the group order.  Values that are not reduced modulo the group order
// are reported as low since they never verify.
func isLowS(sBytes []byte) bool {
	for len(sBytes) > 0 && sBytes[0] == 0x00 {
		sBytes = sBytes[1:]
	}
	if len(sBytes) > 32 {
		return true
	}

	var s btcec.ModNScalar
	if overflow := s.SetByteSlice(sBytes); overflow {
		return true
	}
	return !s.IsOverHalfOrder()
}

// checkSignatureEncoding returns an error if the passed signature, without
// its hash type, is not a canonically encoded DER signature as defined by
// BIP0066.  When requireLowS is set, the S value must also be at most half
// the group order.
//
// The format of a DER encoded signature is as follows:
//
// 0x30 <total length> 0x02 <length of R> <R> 0x02 <length of S> <S>
//   - 0x30 is the ASN.1 identifier for a sequence
//   - Total length is 1 byte and specifies length of all remaining data
//   - 0x02 is the ASN.1 identifier that specifies an integer follows
//   - Length of R is 1 byte and specifies how many bytes R occupies
//   - R is the arbitrary length big-endian encoded number which
//     represents the R value of the signature.  DER encoding dictates
//     that the value must be encoded using the minimum possible number
//     of bytes.  This implies the first byte can only be null if the
//     highest bit of the next byte is set in order to prevent it from
//     being interpreted as a negative number.
//   - 0x02 is once again the ASN.1 integer identifier
//   - Length of S is 1 byte and specifies how many bytes S occupies
//   - S is the arbitrary length big-endian encoded number which
//     represents the S value of the signature.  The encoding rules are
//     identical as those for R.
func checkSignatureEncoding(sig []byte, requireLowS bool) error {
	// The signature must adhere to the minimum and maximum allowed length.
	sigLen := len(sig)
	if sigLen < minSigLen {
		str := fmt.Sprintf("malformed signature: too short: %d < %d", sigLen,
			minSigLen)
		return scriptError(ErrSigTooShort, str)
	}
	if sigLen > maxSigLen {
		str := fmt.Sprintf("malformed signature: too long: %d > %d", sigLen,
			maxSigLen)
		return scriptError(ErrSigTooLong, str)
	}

	// The signature must start with the ASN.1 sequence identifier.
	if sig[sequenceOffset] != asn1SequenceID {
		str := fmt.Sprintf("malformed signature: format has wrong type: %#x",
			sig[sequenceOffset])
		return scriptError(ErrSigInvalidSeqID, str)
	}

	// The signature must indicate the correct amount of data for all elements
	// related to R and S.
	if int(sig[dataLenOffset]) != sigLen-2 {
		str := fmt.Sprintf("malformed signature: bad length: %d != %d",
			sig[dataLenOffset], sigLen-2)
		return scriptError(ErrSigInvalidDataLen, str)
	}

	// Calculate the offsets of the elements related to S and ensure S is
	// inside the signature.
	//
	// rLen specifies the length of the big-endian encoded number which
	// represents the R value of the signature.
	//
	// sTypeOffset is the offset of the ASN.1 identifier for S and, like its R
	// counterpart, is expected to indicate an ASN.1 integer.
	//
	// sLenOffset and sOffset are the byte offsets within the signature of the
	// length of S and S itself, respectively.
	rLen := int(sig[rLenOffset])
	sTypeOffset := rOffset + rLen
	sLenOffset := sTypeOffset + 1
	if sTypeOffset >= sigLen {
		str := "malformed signature: S type indicator missing"
		return scriptError(ErrSigMissingSTypeID, str)
	}
	if sLenOffset >= sigLen {
		str := "malformed signature: S length missing"
		return scriptError(ErrSigMissingSLen, str)
	}

	// The lengths of R and S must match the overall length of the signature.
	//
	// sLen specifies the length of the big-endian encoded number which
	// represents the S value of the signature.
	sOffset := sLenOffset + 1
	sLen := int(sig[sLenOffset])
	if sOffset+sLen != sigLen {
		str := "malformed signature: invalid S length"
		return scriptError(ErrSigInvalidSLen, str)
	}

	// R elements must be ASN.1 integers.
	if sig[rTypeOffset] != asn1IntegerID {
		str := fmt.Sprintf("malformed signature: R integer marker: %#x != %#x",
			sig[rTypeOffset], asn1IntegerID)
		return scriptError(ErrSigInvalidRIntID, str)
	}

	// Zero-length integers are not allowed for R.
	if rLen == 0 {
		str := "malformed signature: R length is zero"
		return scriptError(ErrSigZeroRLen, str)
	}

	// R must not be negative.
	if sig[rOffset]&0x80 != 0 {
		str := "malformed signature: R is negative"
		return scriptError(ErrSigNegativeR, str)
	}

	// Null bytes at the start of R are not allowed, unless R would otherwise be
	// interpreted as a negative number.
	if rLen > 1 && sig[rOffset] == 0x00 && sig[rOffset+1]&0x80 == 0 {
		str := "malformed signature: R value has too much padding"
		return scriptError(ErrSigTooMuchRPadding, str)
	}

	// S elements must be ASN.1 integers.
	if sig[sTypeOffset] != asn1IntegerID {
		str := fmt.Sprintf("malformed signature: S integer marker: %#x != %#x",
			sig[sTypeOffset], asn1IntegerID)
		return scriptError(ErrSigInvalidSIntID, str)
	}

	// Zero-length integers are not allowed for S.
	if sLen == 0 {
		str := "malformed signature: S length is zero"
		return scriptError(ErrSigZeroSLen, str)
	}

	// S must not be negative.
	if sig[sOffset]&0x80 != 0 {
		str := "malformed signature: S is negative"
		return scriptError(ErrSigNegativeS, str)
	}

	// Null bytes at the start of S are not allowed, unless S would otherwise be
	// interpreted as a negative number.
	if sLen > 1 && sig[sOffset] == 0x00 && sig[sOffset+1]&0x80 == 0 {
		str := "malformed signature: S value has too much padding"
		return scriptError(ErrSigTooMuchSPadding, str)
	}

	// Verify the S value is <= half the order of the curve.  This check is
	// done because when it is higher, the complement modulo the order can be
	// used instead which is a shorter encoding by 1 byte.  Further, without
	// enforcing this, it is possible to replace a signature in a valid
	// transaction with the complement while still being a valid signature
	// that verifies.  This would result in changing the transaction hash and
	// thus is a source of malleability.
	if requireLowS && !isLowS(sig[sOffset:sOffset+sLen]) {
		str := "signature is not canonical due to unnecessarily high S value"
		return scriptError(ErrSigHighS, str)
	}

	return nil
}

// checkHashTypeEncoding returns an error if the passed hash type is not one of
// the defined legacy hash types, optionally combined with ANYONECANPAY.
func checkHashTypeEncoding(hashType SigHashType) error {
	sigHashType := hashType & ^SigHashAnyOneCanPay
	if sigHashType < SigHashAll || sigHashType > SigHashSingle {
		str := fmt.Sprintf("invalid hash type 0x%x", hashType)
		return scriptError(ErrInvalidSigHashType, str)
	}
	return nil
}

// IsValidSignatureEncoding returns whether the passed signature, without its
// trailing hash type, follows the strict DER grammar of BIP0066.
func IsValidSignatureEncoding(sig []byte) bool {
	return checkSignatureEncoding(sig, false) == nil
}

// ParseSignature parses a strictly DER encoded signature, without a trailing
// hash type, into a signature usable for verification.
func ParseSignature(sig []byte) (*ecdsa.Signature, error) {
	if err := checkSignatureEncoding(sig, false); err != nil {
		return nil, err
	}
	return ecdsa.ParseDERSignature(sig)
}

// ParseLaxSignature parses a BER encoded signature as accepted by the reference
// client before BIP0066.  It must not be used for consensus validation under
// the DER rule.
func ParseLaxSignature(sig []byte) (*ecdsa.Signature, error) {
	return ecdsa.ParseSignature(sig)
}

// Sign produces a deterministic low-S ECDSA signature of hash using the
// RFC6979 nonce derivation.
func Sign(privKey *btcec.PrivateKey, hash []byte) *ecdsa.Signature {
	return ecdsa.Sign(privKey, hash)
}

// Verify returns whether sig is a valid signature of hash by pubKey.
func Verify(sig *ecdsa.Signature, hash []byte, pubKey *btcec.PublicKey) bool {
	return sig.Verify(hash, pubKey)
}

// SignRecoverable produces a 65-byte compact signature of hash from which the
// compressed public key can be recovered.
func SignRecoverable(privKey *btcec.PrivateKey, hash []byte) []byte {
	return ecdsa.SignCompact(privKey, hash, true)
}

// RecoverPubKey recovers the public key that produced the compact signature
// sig over hash.  The returned bool reports whether the key was compressed.
func RecoverPubKey(sig, hash []byte) (*btcec.PublicKey, bool, error) {
	return ecdsa.RecoverCompact(sig, hash)
}

// Endorsement is a DER encoded signature followed by the one byte hash type it
// commits to, as it appears in a signature script or witness.
type Endorsement []byte

// NewEndorsement serializes sig and appends the hash type.
func NewEndorsement(sig *ecdsa.Signature, hashType SigHashType) Endorsement {
	return append(sig.Serialize(), byte(hashType))
}

// SigHashType returns the hash type committed to by the endorsement.  An empty
// endorsement has hash type zero.
func (e Endorsement) SigHashType() SigHashType {
	if len(e) == 0 {
		return 0
	}
	return SigHashType(e[len(e)-1])
}

// Signature returns the DER encoded signature without the hash type.
func (e Endorsement) Signature() []byte {
	if len(e) == 0 {
		return nil
	}
	return e[:len(e)-1]
}
