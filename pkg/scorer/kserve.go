package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/umputun/bangers/pkg/domain"
	"github.com/umputun/bangers/pkg/features"
)

// KServeParams defines remote model served with the Open Inference (KServe V2) protocol
type KServeParams struct {
	Endpoint string        // root url, e.g. http://localhost:8000
	Model    string        // model name
	Input    string        // input tensor name, defaults to "float_input"
	Output   string        // probabilities tensor name, defaults to "probabilities"
	Classes  []string      // class labels of probability columns, defaults to no, yes
	Timeout  time.Duration // per request, defaults to 5s
}

// KServe scores rows with a model hosted on a KServe V2 compatible server (KServe, Triton,
// MLServer). The model receives an FP32 [N, D] tensor and returns [N, len(Classes)] probabilities.
type KServe struct {
	endpoint string
	model    string
	input    string
	output   string
	classes  []string
	client   *http.Client
}

// NewKServe makes KServe client, doesn't check the server
func NewKServe(p KServeParams) (*KServe, error) {
	if p.Endpoint == "" || p.Model == "" {
		return nil, fmt.Errorf("%w: kserve endpoint and model name are required", domain.ErrModelLoad)
	}
	if p.Input == "" {
		p.Input = "float_input"
	}
	if p.Output == "" {
		p.Output = "probabilities"
	}
	if len(p.Classes) == 0 {
		p.Classes = []string{"no", "yes"}
	}
	if p.Timeout <= 0 {
		p.Timeout = 5 * time.Second
	}
	return &KServe{
		endpoint: strings.TrimRight(p.Endpoint, "/"),
		model:    p.Model,
		input:    p.Input,
		output:   p.Output,
		classes:  p.Classes,
		client:   &http.Client{Timeout: p.Timeout},
	}, nil
}

type v2Tensor struct {
	Name     string    `json:"name"`
	Shape    []int     `json:"shape,omitempty"`
	Datatype string    `json:"datatype,omitempty"`
	Data     []float64 `json:"data,omitempty"`
}

type v2Request struct {
	Inputs  []v2Tensor `json:"inputs"`
	Outputs []v2Tensor `json:"outputs,omitempty"`
}

type v2Response struct {
	ModelName string     `json:"model_name"`
	Outputs   []v2Tensor `json:"outputs"`
	Error     string     `json:"error,omitempty"`
}

// Ready checks the model is loaded on the server
func (k *KServe) Ready(ctx context.Context) error {
	url := fmt.Sprintf("%s/v2/models/%s/ready", k.endpoint, k.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("kserve ready request: %w", err)
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("kserve ready: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("kserve model %s is not ready, status %d", k.model, resp.StatusCode)
	}
	return nil
}

// Predict sends the whole matrix in one infer call. An empty matrix returns empty result
// without calling the server.
func (k *KServe) Predict(ctx context.Context, matrix [][]float64) ([]Probabilities, error) {
	if len(matrix) == 0 {
		return []Probabilities{}, nil
	}

	width := len(features.Columns)
	data := make([]float64, 0, len(matrix)*width)
	for i, row := range matrix {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d values, model expects %d", i, len(row), width)
		}
		data = append(data, row...)
	}

	body, err := json.Marshal(v2Request{
		Inputs:  []v2Tensor{{Name: k.input, Shape: []int{len(matrix), width}, Datatype: "FP32", Data: data}},
		Outputs: []v2Tensor{{Name: k.output}},
	})
	if err != nil {
		return nil, fmt.Errorf("kserve marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/models/%s/infer", k.endpoint, k.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("kserve create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kserve request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("kserve read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kserve error: status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	var v2 v2Response
	if err := json.Unmarshal(respBody, &v2); err != nil {
		return nil, fmt.Errorf("kserve unmarshal response: %w", err)
	}
	if v2.Error != "" {
		return nil, fmt.Errorf("kserve error: %s", v2.Error)
	}
	return k.probabilities(v2.Outputs, len(matrix))
}

// probabilities picks the configured output tensor and splits it into per-row records
func (k *KServe) probabilities(outputs []v2Tensor, rows int) ([]Probabilities, error) {
	idx := slices.IndexFunc(outputs, func(t v2Tensor) bool { return t.Name == k.output })
	if idx < 0 {
		return nil, fmt.Errorf("kserve response has no %q output", k.output)
	}
	out := outputs[idx]
	numClasses := len(k.classes)
	if len(out.Data) != rows*numClasses {
		return nil, fmt.Errorf("kserve output %q has %d values, expected %d", k.output, len(out.Data), rows*numClasses)
	}

	res := make([]Probabilities, rows)
	for i := range rows {
		p := make(Probabilities, numClasses)
		for j, class := range k.classes {
			v := out.Data[i*numClasses+j]
			if math.IsNaN(v) || v < 0 || v > 1 {
				return nil, errors.New("kserve returned probability outside [0,1]")
			}
			p[class] = v
		}
		res[i] = p
	}
	return res, nil
}

// Info returns model description
func (k *KServe) Info() Info {
	return Info{Backend: BackendKServe, Name: k.model, Classes: slices.Clone(k.classes), Features: features.Names()}
}
