package integrity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/engramhq/engram/internal/engramerr"
	"github.com/engramhq/engram/internal/models"
)

// Tree is an order-independent Merkle tree: the leaves are sorted bytewise
// before pairing and pair order at every layer is canonicalized by byte
// comparison, so permuting the leaves never changes the root.
type Tree struct {
	leaves [][32]byte
	layers [][][32]byte // layers[0] == leaves sorted bytewise, ... layers[last] == [root]
}

// hashPair combines two node hashes, canonicalizing their order first so
// layer-level pairing order never affects the result.
func hashPair(a, b [32]byte) [32]byte {
	first, second := a, b
	if bytes.Compare(a[:], b[:]) > 0 {
		first, second = b, a
	}
	h := sha256.New()
	h.Write(first[:])
	h.Write(second[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// BuildTree constructs a Tree over leaves. Zero leaves yields a tree whose
// root is 32 zero bytes; one leaf yields a tree whose root is that leaf.
func BuildTree(leaves [][32]byte) *Tree {
	t := &Tree{leaves: leaves}
	if len(leaves) == 0 {
		t.layers = [][][32]byte{{{}}}
		return t
	}

	current := make([][32]byte, len(leaves))
	copy(current, leaves)
	// Sorting the leaves makes the pairing, and so the root, independent of input order.
	sort.Slice(current, func(i, j int) bool { return bytes.Compare(current[i][:], current[j][:]) < 0 })
	t.layers = append(t.layers, current)

	for len(current) > 1 {
		next := make([][32]byte, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			if i+1 < len(current) {
				next = append(next, hashPair(current[i], current[i+1]))
			} else {
				// Odd leaf: duplicated by pairing with itself at this layer.
				next = append(next, hashPair(current[i], current[i]))
			}
		}
		t.layers = append(t.layers, next)
		current = next
	}
	return t
}

// Root returns the tree's root hash.
func (t *Tree) Root() [32]byte {
	last := t.layers[len(t.layers)-1]
	if len(last) == 0 {
		return [32]byte{}
	}
	return last[0]
}

// Proof builds an inclusion proof for the leaf at index (in the order the
// leaves were passed to BuildTree), walking from the leaf's position in the
// sorted bottom layer up and recording the sibling hash and position at
// each layer.
func (t *Tree) Proof(index int) (models.Proof, error) {
	if index < 0 || index >= len(t.leaves) {
		return models.Proof{}, engramerr.Wrapf(engramerr.ErrUsage, "leaf index %d out of range", index)
	}
	proof := models.Proof{LeafIndex: index}
	idx := index
	for i, leaf := range t.layers[0] {
		if leaf == t.leaves[index] {
			idx = i
			break
		}
	}
	for layer := 0; layer < len(t.layers)-1; layer++ {
		nodes := t.layers[layer]
		var siblingIdx int
		var position string
		if idx%2 == 0 {
			position = "right"
			if idx+1 < len(nodes) {
				siblingIdx = idx + 1
			} else {
				siblingIdx = idx // odd leaf paired with itself
			}
		} else {
			position = "left"
			siblingIdx = idx - 1
		}
		proof.Steps = append(proof.Steps, models.ProofStep{
			Sibling:  hex.EncodeToString(nodes[siblingIdx][:]),
			Position: position,
		})
		idx /= 2
	}
	return proof, nil
}

// VerifyProof recomputes the root by pairing leaf with each recorded
// sibling and reports whether it equals root.
func VerifyProof(leaf [32]byte, proof models.Proof, root [32]byte) bool {
	current := leaf
	for _, step := range proof.Steps {
		siblingBytes, err := hex.DecodeString(step.Sibling)
		if err != nil || len(siblingBytes) != 32 {
			return false
		}
		var sibling [32]byte
		copy(sibling[:], siblingBytes)
		current = hashPair(current, sibling)
	}
	return current == root
}

// CreateSnapshot builds the ordered-by-id snapshot record over episodes,
// hashing their as-stored (possibly ciphertext) canonical form.
func CreateSnapshot(episodes []*models.Episode) (*models.Snapshot, error) {
	sorted := make([]*models.Episode, len(episodes))
	copy(sorted, episodes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	ids := make([]string, len(sorted))
	hashes := make([]string, len(sorted))
	leaves := make([][32]byte, len(sorted))
	for i, ep := range sorted {
		h, err := Hash(ep)
		if err != nil {
			return nil, fmt.Errorf("hash episode %s: %w", ep.ID, err)
		}
		ids[i] = ep.ID
		hashes[i] = hex.EncodeToString(h[:])
		leaves[i] = h
	}

	tree := BuildTree(leaves)
	root := tree.Root()

	return &models.Snapshot{
		Root:          hex.EncodeToString(root[:]),
		EpisodeCount:  len(sorted),
		Timestamp:     time.Now().UnixMilli(),
		EpisodeHashes: hashes,
		EpisodeIDs:    ids,
		EngramVersion: models.EngramVersion,
	}, nil
}

// GetEpisodeProof rebuilds the tree from snap's stored leaf hashes and
// returns the inclusion proof for id.
func GetEpisodeProof(snap *models.Snapshot, id string) (models.Proof, error) {
	index := -1
	for i, existing := range snap.EpisodeIDs {
		if existing == id {
			index = i
			break
		}
	}
	if index == -1 {
		return models.Proof{}, engramerr.Wrapf(engramerr.ErrNotFound, "%s not in snapshot", id)
	}

	leaves := make([][32]byte, len(snap.EpisodeHashes))
	for i, h := range snap.EpisodeHashes {
		b, err := hex.DecodeString(h)
		if err != nil || len(b) != 32 {
			return models.Proof{}, engramerr.Wrapf(engramerr.ErrMalformed, "snapshot leaf hash %d", i)
		}
		copy(leaves[i][:], b)
	}

	tree := BuildTree(leaves)
	return tree.Proof(index)
}

// VerifyEpisode reports whether ep's canonical hash, combined with proof,
// recomputes to rootHex.
func VerifyEpisode(ep *models.Episode, proof models.Proof, rootHex string) (bool, error) {
	rootBytes, err := hex.DecodeString(rootHex)
	if err != nil || len(rootBytes) != 32 {
		return false, engramerr.Wrapf(engramerr.ErrMalformed, "root hex")
	}
	var root [32]byte
	copy(root[:], rootBytes)

	leaf, err := Hash(ep)
	if err != nil {
		return false, err
	}
	return VerifyProof(leaf, proof, root), nil
}
