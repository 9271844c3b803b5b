// Package serialization implements the checkpoint format used to persist a
// trained network.
//
//	Format Structure:
//	  [4 bytes: Magic "MLPW"]
//	  [4 bytes: Version (uint32 LE)]
//	  [4 bytes: Flags (uint32 LE)]
//	  [8 bytes: Header Size (uint64 LE)]
//	  [32 bytes: SHA-256 of header JSON followed by tensor data]
//	  [Header: JSON metadata]
//	  [Tensor data: float64 LE, tensors back to back in header order]
//
// The header records the architecture (layer widths, activation names, loss)
// next to the tensor table, so a reader can rebuild the network without any
// other input.
//
// Example usage:
//
//	header := serialization.Header{Sizes: []int{2, 4, 1}, Activations: []string{"sigmoid", "identity"}}
//	if err := serialization.WriteFile("xor.mlpw", header, tensors); err != nil {
//	    log.Fatal(err)
//	}
//
//	header, tensors, err := serialization.ReadFile("xor.mlpw")
package serialization
