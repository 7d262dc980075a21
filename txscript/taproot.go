// Copyright (c) 2013-2022 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/btcsuite/btcscript/wire"
)

// TapscriptLeafVersion represents the various possible versions of a tapscript
// leaf version. Leaf versions are used to define, or introduce new script
// semantics, under the base taproot execution model.
type TapscriptLeafVersion uint8

const (
	// BaseLeafVersion is the base tapscript leaf version. The semantics of
	// this version are defined in BIP 342.
	BaseLeafVersion TapscriptLeafVersion = 0xc0

	// TaprootLeafMask is the mask applied to the first control block byte
	// to obtain the leaf version.  The remaining bit is the output key
	// parity.
	TaprootLeafMask = 0xfe
)

const (
	// ControlBlockBaseSize is the base size of a control block. This
	// includes the initial byte for the leaf version, and then serialized
	// schnorr public key.
	ControlBlockBaseSize = 33

	// ControlBlockNodeSize is the size of a given merkle branch hash in
	// the control block.
	ControlBlockNodeSize = 32

	// ControlBlockMaxNodeCount is the max number of nodes that can be
	// included in a control block. This value represents a merkle tree of
	// depth 2^128.
	ControlBlockMaxNodeCount = 128

	// ControlBlockMaxSize is the max possible size of a control block.
	// This simulates revealing a leaf from the largest possible tapscript
	// tree.
	ControlBlockMaxSize = ControlBlockBaseSize + (ControlBlockNodeSize *
		ControlBlockMaxNodeCount)
)

// VerifyTaprootKeySpend attempts to verify a top-level taproot key spend,
// returning a non-nil error if the passed signature is invalid.  If a sigCache
// is passed in, then the sig cache will be consulted to skip full verification
// of a signature that has already been seen. Witness program here should be
// the 32-byte x-only schnorr output public key.
//
// The sighash midstate is computed from prevOuts when hashCache is nil.
func VerifyTaprootKeySpend(witnessProgram []byte, rawSig []byte, tx *wire.MsgTx,
	inputIndex int, prevOuts PrevOutputFetcher, hashCache *TxSigHashes,
	sigCache *SigCache) error {

	if inputIndex < 0 || inputIndex >= len(tx.TxIn) {
		str := fmt.Sprintf("transaction input index %d is negative or "+
			"out of range", inputIndex)
		return scriptError(ErrInvalidIndex, str)
	}

	if hashCache == nil {
		hashCache = NewTxSigHashes(tx, prevOuts)
	}

	verifier, err := newTaprootSigVerifier(
		witnessProgram, rawSig, tx, inputIndex, prevOuts, sigCache,
		hashCache,
	)
	if err != nil {
		return err
	}

	// The annex, when present, is committed to by the signature.
	var opts []TaprootSigHashOption
	if annex, err := extractAnnex(tx.TxIn[inputIndex].Witness); err == nil {
		opts = append(opts, WithAnnex(annex))
	}
	return verifier.verify(opts...)
}

// ControlBlock houses the structured witness input for a taproot spend. This
// includes the internal taproot key, the leaf version, and finally a nearly
// complete merkle inclusion proof for the main taproot commitment.
type ControlBlock struct {
	// InternalKey is the internal public key in the taproot commitment.
	InternalKey *btcec.PublicKey

	// OutputKeyYIsOdd denotes if the y coordinate of the output key (the
	// key placed in the actual taproot output is odd.
	OutputKeyYIsOdd bool

	// LeafVersion is the specified leaf version of the tapscript leaf that
	// the InclusionProof below is based off of.
	LeafVersion TapscriptLeafVersion

	// InclusionProof is a series of merkle branches that when hashed
	// pairwise, starting with the revealed script, will yield the taproot
	// commitment root.
	InclusionProof []byte
}

// ToBytes returns the control block in a format suitable for using as part of
// a witness spending a tapscript output.
func (c *ControlBlock) ToBytes() ([]byte, error) {
	var b bytes.Buffer

	// The first byte is a combination of the leaf version, using the
	// lowest bit to encode the parity of the y coordinate of the output
	// key.
	yParity := byte(0)
	if c.OutputKeyYIsOdd {
		yParity = 1
	}
	leafVersionAndParity := byte(c.LeafVersion) | yParity
	if err := b.WriteByte(leafVersionAndParity); err != nil {
		return nil, err
	}

	// Next, we encode the raw 32 byte schnorr public key.
	if _, err := b.Write(schnorr.SerializePubKey(c.InternalKey)); err != nil {
		return nil, err
	}

	// Finally, we'll write out the inclusion proof as is, without any
	// length prefix.
	if _, err := b.Write(c.InclusionProof); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// RootHash calculates the root hash of a tapscript given the revealed script.
func (c *ControlBlock) RootHash(revealedScript []byte) []byte {
	// The leaf hash of the revealed script is the initial value of the
	// accumulator, each proof node is then folded in until we reach the
	// root.
	merkleAccumulator := NewTapLeaf(c.LeafVersion, revealedScript).TapHash()

	numNodes := len(c.InclusionProof) / ControlBlockNodeSize
	for nodeOffset := 0; nodeOffset < numNodes; nodeOffset++ {
		leafOffset := ControlBlockNodeSize * nodeOffset
		nextNode := c.InclusionProof[leafOffset : leafOffset+ControlBlockNodeSize]

		merkleAccumulator = tapBranchHash(merkleAccumulator[:], nextNode)
	}

	return merkleAccumulator[:]
}

// checkControlBlockSize returns an error if the control block can't be a
// valid proof: 33 bytes of leaf version and internal key followed by at most
// 128 nodes of 32 bytes.
func checkControlBlockSize(ctrlBlock []byte) error {
	switch {
	case len(ctrlBlock) < ControlBlockBaseSize:
		str := fmt.Sprintf("min size is %v bytes, control block is %v "+
			"bytes", ControlBlockBaseSize, len(ctrlBlock))
		return scriptError(ErrControlBlockTooSmall, str)

	case len(ctrlBlock) > ControlBlockMaxSize:
		str := fmt.Sprintf("max size is %v, control block is %v bytes",
			ControlBlockMaxSize, len(ctrlBlock))
		return scriptError(ErrControlBlockTooLarge, str)

	case (len(ctrlBlock)-ControlBlockBaseSize)%ControlBlockNodeSize != 0:
		str := fmt.Sprintf("control block proof is not a multiple of "+
			"32: %v", len(ctrlBlock)-ControlBlockBaseSize)
		return scriptError(ErrControlBlockInvalidLength, str)
	}

	return nil
}

// ParseControlBlock attempts to parse the raw bytes of a control block. An
// error is returned if the control block isn't well formed, or can't be
// parsed.
func ParseControlBlock(ctrlBlock []byte) (*ControlBlock, error) {
	if err := checkControlBlockSize(ctrlBlock); err != nil {
		return nil, err
	}

	leafVersion := TapscriptLeafVersion(ctrlBlock[0] & TaprootLeafMask)
	yIsOdd := ctrlBlock[0]&0x01 == 0x01

	// The internal key is the 32 bytes following the leaf version.  A key
	// that isn't on the curve can't open any commitment.
	pubKey, err := schnorr.ParsePubKey(ctrlBlock[1:ControlBlockBaseSize])
	if err != nil {
		str := fmt.Sprintf("invalid internal key in control block: %v",
			err)
		return nil, scriptError(ErrTaprootMerkleProofInvalid, str)
	}

	return &ControlBlock{
		InternalKey:     pubKey,
		OutputKeyYIsOdd: yIsOdd,
		LeafVersion:     leafVersion,
		InclusionProof:  ctrlBlock[ControlBlockBaseSize:],
	}, nil
}

// ComputeTaprootOutputKey calculates a top-level taproot output key given an
// internal key, and tapscript merkle root. The final key is derived as:
// taprootKey = internalKey + (h_tapTweak(internalKey || merkleRoot)*G).
func ComputeTaprootOutputKey(pubKey *btcec.PublicKey,
	scriptRoot []byte) *btcec.PublicKey {

	// This routine only operates on x-only public keys where the public
	// key always has an even y coordinate, so we'll re-parse it as such.
	internalKey, _ := schnorr.ParsePubKey(schnorr.SerializePubKey(pubKey))

	tapTweakHash := chainhash.TaggedHash(
		chainhash.TagTapTweak, schnorr.SerializePubKey(internalKey),
		scriptRoot,
	)

	var tweakScalar secp.ModNScalar
	tweakScalar.SetBytes((*[32]byte)(tapTweakHash))

	var internalPoint secp.JacobianPoint
	internalKey.AsJacobian(&internalPoint)

	// taprootKey = internalPoint + (tapTweak*G).
	var tPoint, taprootKey secp.JacobianPoint
	secp.ScalarBaseMultNonConst(&tweakScalar, &tPoint)
	secp.AddNonConst(&internalPoint, &tPoint, &taprootKey)

	taprootKey.ToAffine()

	return secp.NewPublicKey(&taprootKey.X, &taprootKey.Y)
}

// ComputeTaprootKeyNoScript calculates the top-level taproot output key given
// an internal key, and a desire that the only way an output can be spent is
// with the keyspend path.
func ComputeTaprootKeyNoScript(internalKey *btcec.PublicKey) *btcec.PublicKey {
	return ComputeTaprootOutputKey(internalKey, []byte{})
}

// TweakTaprootPrivKey applies the same operation as ComputeTaprootOutputKey,
// but on the private key instead. The final key is derived as: privKey +
// h_tapTweak(internalKey || merkleRoot) % N, where N is the order of the
// secp256k1 curve, and merkleRoot is the root hash of the tapscript tree.
// The passed private key is left untouched.
func TweakTaprootPrivKey(privKey *btcec.PrivateKey,
	scriptRoot []byte) *btcec.PrivateKey {

	// If the corresponding public key has an odd y coordinate, then we'll
	// negate the private key as specified in BIP 341.
	privKeyScalar := privKey.Key
	pubKeyBytes := privKey.PubKey().SerializeCompressed()
	if pubKeyBytes[0] == secp.PubKeyFormatCompressedOdd {
		privKeyScalar.Negate()
	}

	// The tweak commits to the x-only internal key, which is the
	// compressed serialization without the parity byte.
	schnorrKeyBytes := pubKeyBytes[1:]
	tapTweakHash := chainhash.TaggedHash(
		chainhash.TagTapTweak, schnorrKeyBytes, scriptRoot,
	)

	var tweakScalar secp.ModNScalar
	tweakScalar.SetBytes((*[32]byte)(tapTweakHash))

	privKeyScalar.Add(&tweakScalar)

	return secp.NewPrivateKey(&privKeyScalar)
}

// VerifyTaprootLeafCommitment attempts to verify a taproot commitment of the
// revealed script within the taprootWitnessProgram (a schnorr public key)
// given the required information included in the control block. An error is
// returned if the reconstructed taproot commitment (a function of the merkle
// root and the internal key) doesn't match the passed witness program, or if
// the parity bit of the control block doesn't match the output key.
func VerifyTaprootLeafCommitment(controlBlock *ControlBlock,
	taprootWitnessProgram []byte, revealedScript []byte) error {

	rootHash := controlBlock.RootHash(revealedScript)

	// taprootKey = internalKey + (tPoint*G).
	taprootKey := ComputeTaprootOutputKey(
		controlBlock.InternalKey, rootHash,
	)

	expectedWitnessProgram := schnorr.SerializePubKey(taprootKey)
	if !bytes.Equal(expectedWitnessProgram, taprootWitnessProgram) {
		str := fmt.Sprintf("derived output key %x doesn't match witness "+
			"program %x", expectedWitnessProgram, taprootWitnessProgram)
		return scriptError(ErrTaprootMerkleProofInvalid, str)
	}

	// The y parity encoded in the control block must match the parity of
	// the derived key.
	derivedYIsOdd := taprootKey.SerializeCompressed()[0] ==
		secp.PubKeyFormatCompressedOdd
	if controlBlock.OutputKeyYIsOdd != derivedYIsOdd {
		str := fmt.Sprintf("control block parity odd=%v doesn't match "+
			"output key parity odd=%v", controlBlock.OutputKeyYIsOdd,
			derivedYIsOdd)
		return scriptError(ErrTaprootOutputKeyParityMismatch, str)
	}

	return nil
}

// TapNode represents an abstract node in a tapscript merkle tree. A node is
// either a branch or a leaf.
type TapNode interface {
	// TapHash returns the hash of the node. This will either be a tagged
	// hash derived from a branch, or a leaf.
	TapHash() chainhash.Hash

	// Left returns the left node. If this is a leaf node, this may be nil.
	Left() TapNode

	// Right returns the right node. If this is a leaf node, this may be
	// nil.
	Right() TapNode
}

// TapLeaf represents a leaf in a tapscript tree. A leaf has two components:
// the leaf version, and the script associated with that leaf version.
type TapLeaf struct {
	// LeafVersion is the leaf version of this leaf.
	LeafVersion TapscriptLeafVersion

	// Script is the script to be validated based on the specified leaf
	// version.
	Script []byte
}

// Left returns nil as a leaf has no children.
func (t TapLeaf) Left() TapNode {
	return nil
}

// Right returns nil as a leaf has no children.
func (t TapLeaf) Right() TapNode {
	return nil
}

// NewBaseTapLeaf returns a new TapLeaf for the specified script, using the
// current base leaf version (BIP 342).
func NewBaseTapLeaf(script []byte) TapLeaf {
	return TapLeaf{
		Script:      script,
		LeafVersion: BaseLeafVersion,
	}
}

// NewTapLeaf returns a new TapLeaf with the given leaf version and script to
// be committed to.
func NewTapLeaf(leafVersion TapscriptLeafVersion, script []byte) TapLeaf {
	return TapLeaf{
		LeafVersion: leafVersion,
		Script:      script,
	}
}

// TapHash returns the hash digest of the target taproot script leaf. The
// digest is computed as: h_tapleaf(leafVersion || compactSizeof(script) ||
// script).
func (t TapLeaf) TapHash() chainhash.Hash {
	var leafEncoding bytes.Buffer

	_ = leafEncoding.WriteByte(byte(t.LeafVersion))
	_ = wire.WriteVarBytes(&leafEncoding, t.Script)

	return *chainhash.TaggedHash(chainhash.TagTapLeaf, leafEncoding.Bytes())
}

// TapBranch represents an internal branch in the tapscript tree. The left or
// right nodes may either be another branch, leaves, or a combination of both.
type TapBranch struct {
	leftNode  TapNode
	rightNode TapNode
}

// NewTapBranch creates a new internal branch from a left and right node.
func NewTapBranch(l, r TapNode) TapBranch {
	return TapBranch{
		leftNode:  l,
		rightNode: r,
	}
}

// Left is the left node of the branch, this might be a leaf or another
// branch.
func (t TapBranch) Left() TapNode {
	return t.leftNode
}

// Right is the right node of a branch, this might be a leaf or another branch.
func (t TapBranch) Right() TapNode {
	return t.rightNode
}

// TapHash returns the hash digest of the taproot internal branch given a left
// and right node. The final hash digest is: h_tapbranch(leftNode ||
// rightNode), where leftNode is the lexicographically smaller of the two nodes.
func (t TapBranch) TapHash() chainhash.Hash {
	leftHash := t.leftNode.TapHash()
	rightHash := t.rightNode.TapHash()
	return tapBranchHash(leftHash[:], rightHash[:])
}

// tapBranchHash takes the raw tap hashes of the right and left nodes and
// hashes them into a branch, smaller hash first.
func tapBranchHash(l, r []byte) chainhash.Hash {
	if bytes.Compare(l, r) > 0 {
		l, r = r, l
	}

	return *chainhash.TaggedHash(chainhash.TagTapBranch, l, r)
}

// TapscriptProof is a proof of inclusion that a given leaf (a script and leaf
// version) is included within a top-level taproot output commitment.
type TapscriptProof struct {
	// TapLeaf is the leaf that we want to prove inclusion for.
	TapLeaf

	// RootNode is the root of the tapscript tree, this will be used to
	// compute what the final output key looks like.
	RootNode TapNode

	// InclusionProof is the tail end of the control block that contains
	// the series of hashes (the sibling hashes up the tree), that when
	// hashed together allow us to re-derive the top level taproot output.
	InclusionProof []byte
}

// ToControlBlock maps the tapscript proof into a fully valid control block
// that can be used as a witness item for a tapscript spend.
func (t *TapscriptProof) ToControlBlock(internalKey *btcec.PublicKey) ControlBlock {
	rootHash := t.RootNode.TapHash()
	outputKey := ComputeTaprootOutputKey(internalKey, rootHash[:])

	return ControlBlock{
		InternalKey: internalKey,
		OutputKeyYIsOdd: outputKey.SerializeCompressed()[0] ==
			secp.PubKeyFormatCompressedOdd,
		LeafVersion:    t.TapLeaf.LeafVersion,
		InclusionProof: t.InclusionProof,
	}
}

// AssembleTaprootScriptTree builds a balanced tapscript tree from the passed
// leaves and returns the root together with an inclusion proof for every
// leaf, in the order the leaves were given.
func AssembleTaprootScriptTree(leaves ...TapLeaf) (TapNode, []TapscriptProof) {
	if len(leaves) == 0 {
		return nil, nil
	}

	type subtree struct {
		node TapNode

		// members are the indexes of the leaves below the node.
		members []int
	}

	proofs := make([]TapscriptProof, len(leaves))
	level := make([]subtree, len(leaves))
	for i, leaf := range leaves {
		proofs[i].TapLeaf = leaf
		level[i] = subtree{node: leaf, members: []int{i}}
	}

	// Pair up the nodes of each level, appending the sibling hash to the
	// proof of every leaf below each side.  An odd node is carried up.
	for len(level) > 1 {
		next := make([]subtree, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			left, right := level[i], level[i+1]
			leftHash, rightHash := left.node.TapHash(), right.node.TapHash()
			for _, idx := range left.members {
				proofs[idx].InclusionProof = append(
					proofs[idx].InclusionProof, rightHash[:]...,
				)
			}
			for _, idx := range right.members {
				proofs[idx].InclusionProof = append(
					proofs[idx].InclusionProof, leftHash[:]...,
				)
			}
			next = append(next, subtree{
				node:    NewTapBranch(left.node, right.node),
				members: append(append([]int(nil), left.members...),
					right.members...),
			})
		}
		level = next
	}

	root := level[0].node
	for i := range proofs {
		proofs[i].RootNode = root
	}
	return root, proofs
}
