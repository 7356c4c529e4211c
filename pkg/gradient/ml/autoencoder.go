package ml

import (
	"fmt"
	"math"
)

// Autoencoder is a single-bottleneck network: sigmoid encoder, linear
// decoder, trained by per-sample SGD on reconstruction MSE.
type Autoencoder struct {
	inputDim, encodingDim int
	settings              TrainingSettings
	src                   source

	encW [][]float64 // encodingDim × inputDim
	encB []float64
	decW [][]float64 // inputDim × encodingDim
	decB []float64

	lossHistory []float64
	fitted      bool
}

// NewAutoencoder returns an unfitted autoencoder.
func NewAutoencoder(inputDim, encodingDim int, s TrainingSettings) (*Autoencoder, error) {
	if inputDim < 1 {
		return nil, fmt.Errorf("autoencoder: input dimension %d must be at least 1: %w", inputDim, ErrBadParameter)
	}
	if encodingDim < 1 {
		return nil, fmt.Errorf("autoencoder: encoding dimension %d must be at least 1: %w", encodingDim, ErrBadParameter)
	}
	if err := s.validate(KindAutoencoder); err != nil {
		return nil, err
	}
	return &Autoencoder{
		inputDim:    inputDim,
		encodingDim: encodingDim,
		settings:    s,
		src:         newSource(s.Seed),
	}, nil
}

func (ae *Autoencoder) Kind() string { return KindAutoencoder }
func (ae *Autoencoder) Fitted() bool { return ae.fitted }

func (ae *Autoencoder) Describe() string {
	state := "unfitted"
	if ae.fitted {
		state = fmt.Sprintf("fitted, %d epochs", len(ae.lossHistory))
	}
	return fmt.Sprintf("autoencoder %d->%d %s", ae.inputDim, ae.encodingDim, state)
}

func (ae *Autoencoder) Clone() Engine {
	return &Autoencoder{
		inputDim:    ae.inputDim,
		encodingDim: ae.encodingDim,
		settings:    ae.settings,
		src:         ae.src.clone(),
		encW:        copyRows(ae.encW),
		encB:        append([]float64(nil), ae.encB...),
		decW:        copyRows(ae.decW),
		decB:        append([]float64(nil), ae.decB...),
		lossHistory: append([]float64(nil), ae.lossHistory...),
		fitted:      ae.fitted,
	}
}

// Fit initialises the weights and trains until the epoch loss changes by
// less than the tolerance or MaxEpochs is reached.
func (ae *Autoencoder) Fit(X [][]float64) error {
	if _, err := checkRows(KindAutoencoder, X, ae.inputDim); err != nil {
		return err
	}

	ae.encW = ae.src.xavier(ae.inputDim, ae.encodingDim)
	ae.encB = make([]float64, ae.encodingDim)
	ae.decW = ae.src.xavier(ae.encodingDim, ae.inputDim)
	ae.decB = make([]float64, ae.inputDim)
	ae.lossHistory = nil

	prev := math.Inf(1)
	for epoch := 0; epoch < ae.settings.MaxEpochs; epoch++ {
		total := 0.0
		for _, idx := range ae.src.permutation(len(X)) {
			x := X[idx]
			encoded, decoded := ae.forward(x)
			total += mse(decoded, x)
			ae.backward(x, encoded, decoded)
		}

		avg := total / float64(len(X))
		ae.lossHistory = append(ae.lossHistory, avg)
		if converged(prev, avg, ae.settings.Tolerance) {
			break
		}
		prev = avg
	}

	ae.fitted = true
	return nil
}

// Train refits on X.
func (ae *Autoencoder) Train(X [][]float64) error {
	return ae.Fit(X)
}

func (ae *Autoencoder) encodeOne(x []float64) []float64 {
	encoded := make([]float64, ae.encodingDim)
	for i := range encoded {
		sum := ae.encB[i]
		for j, v := range x {
			sum += v * ae.encW[i][j]
		}
		encoded[i] = sigmoid(sum)
	}
	return encoded
}

func (ae *Autoencoder) decodeOne(z []float64) []float64 {
	decoded := make([]float64, ae.inputDim)
	for i := range decoded {
		sum := ae.decB[i]
		for j, v := range z {
			sum += v * ae.decW[i][j]
		}
		decoded[i] = sum
	}
	return decoded
}

func (ae *Autoencoder) forward(x []float64) (encoded, decoded []float64) {
	encoded = ae.encodeOne(x)
	return encoded, ae.decodeOne(encoded)
}

func (ae *Autoencoder) backward(x, encoded, decoded []float64) {
	lr := ae.settings.LearningRate

	outErr := make([]float64, ae.inputDim)
	for i := range outErr {
		outErr[i] = decoded[i] - x[i]
	}

	// hidden errors use the decoder weights before this step's update
	hiddenErr := make([]float64, ae.encodingDim)
	for i := range hiddenErr {
		sum := 0.0
		for j := range outErr {
			sum += outErr[j] * ae.decW[j][i]
		}
		hiddenErr[i] = sum * encoded[i] * (1 - encoded[i])
	}

	for i := range outErr {
		for j := range encoded {
			ae.decW[i][j] -= lr * outErr[i] * encoded[j]
		}
		ae.decB[i] -= lr * outErr[i]
	}

	for i := range hiddenErr {
		for j := range x {
			ae.encW[i][j] -= lr * hiddenErr[i] * x[j]
		}
		ae.encB[i] -= lr * hiddenErr[i]
	}
}

// Encode maps samples to their bottleneck activations.
func (ae *Autoencoder) Encode(X [][]float64) ([][]float64, error) {
	if !ae.fitted {
		return nil, notFitted(KindAutoencoder, "encode")
	}
	if _, err := checkRows(KindAutoencoder, X, ae.inputDim); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		out[i] = ae.encodeOne(x)
	}
	return out, nil
}

// Decode maps bottleneck activations back to input space.
func (ae *Autoencoder) Decode(Z [][]float64) ([][]float64, error) {
	if !ae.fitted {
		return nil, notFitted(KindAutoencoder, "decode")
	}
	if _, err := checkRows(KindAutoencoder, Z, ae.encodingDim); err != nil {
		return nil, err
	}
	out := make([][]float64, len(Z))
	for i, z := range Z {
		out[i] = ae.decodeOne(z)
	}
	return out, nil
}

// Reconstruct encodes then decodes each sample.
func (ae *Autoencoder) Reconstruct(X [][]float64) ([][]float64, error) {
	if !ae.fitted {
		return nil, notFitted(KindAutoencoder, "reconstruct")
	}
	if _, err := checkRows(KindAutoencoder, X, ae.inputDim); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		_, out[i] = ae.forward(x)
	}
	return out, nil
}

// ReconstructionError is the mean over samples of the per-sample MSE.
func (ae *Autoencoder) ReconstructionError(X [][]float64) (float64, error) {
	if !ae.fitted {
		return 0, notFitted(KindAutoencoder, "reconstruction_error")
	}
	recon, err := ae.Reconstruct(X)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for i, x := range X {
		total += mse(recon[i], x)
	}
	return total / float64(len(X)), nil
}

// LossHistory returns the average loss of each training epoch.
func (ae *Autoencoder) LossHistory() []float64 {
	return append([]float64(nil), ae.lossHistory...)
}

// EncodingWeights returns a copy of the encoder weight matrix.
func (ae *Autoencoder) EncodingWeights() ([][]float64, error) {
	if !ae.fitted {
		return nil, notFitted(KindAutoencoder, "get_encoding_weights")
	}
	return copyRows(ae.encW), nil
}

func mse(pred, target []float64) float64 {
	sum := 0.0
	for i := range pred {
		d := pred[i] - target[i]
		sum += d * d
	}
	return sum / float64(len(pred))
}
