// Package compute implements the binary neuron: an XNOR match count
// against a packed weight vector, compared to a threshold on hidden
// layers and passed through raw on the output layer, plus the final
// argmax.
package compute

import (
	"fmt"

	"bitnn/bitvec"
)

// Evaluate computes one neuron's output for an activation vector.
// Hidden layers fire (1) when the match count reaches the threshold;
// the output layer emits the raw match count so the classifier can
// rank categories. There is no saturation and no other numeric
// treatment.
func Evaluate(act, w *bitvec.Vector, outputLayer bool, threshold int) (int, error) {
	if act.Len() != w.Len() {
		return 0, fmt.Errorf("compute: activation %d bits vs weights %d bits", act.Len(), w.Len())
	}
	count, err := bitvec.MatchCount(act, w)
	if err != nil {
		return 0, err
	}
	if outputLayer {
		return count, nil
	}
	if count >= threshold {
		return 1, nil
	}
	return 0, nil
}

// Argmax returns the lowest index holding the maximum value. Equal
// values never displace the incumbent, so an all-equal vector yields 0.
func Argmax(counts []int) int {
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}
