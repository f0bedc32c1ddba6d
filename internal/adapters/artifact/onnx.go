package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ortInit sync.Mutex

// onnxSession runs a single-row regression graph. Run takes the mutex since
// the input and output tensors are shared.
type onnxSession struct {
	session  *ort.AdvancedSession
	input    *ort.Tensor[float32]
	output   *ort.Tensor[float32]
	features []string

	mu sync.Mutex
}

func openONNX(dir string, s *Spec, libPath string) (*onnxSession, error) {
	if libPath == "" {
		libPath = resolveSharedLibraryPath(dir)
	}
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH: %w", ErrBackend)
	}
	if _, err := os.Stat(libPath); err != nil {
		return nil, fmt.Errorf("onnxruntime shared library %s: %v: %w", libPath, err, ErrBackend)
	}
	modelPath := filepath.Join(dir, s.File)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %v: %w", modelPath, err, ErrModelUnavailable)
	}

	ortInit.Lock()
	if !ort.IsInitialized() {
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			ortInit.Unlock()
			return nil, fmt.Errorf("initialize onnxruntime: %v: %w", err, ErrBackend)
		}
	}
	ortInit.Unlock()

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(s.Features))))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %v: %w", err, ErrBackend)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		_ = input.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %v: %w", err, ErrBackend)
	}
	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{s.Input},
		[]string{s.Output},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, fmt.Errorf("create onnx session: %v: %w", err, ErrBackend)
	}
	return &onnxSession{session: session, input: input, output: output, features: s.Features}, nil
}

func (o *onnxSession) score(x map[string]float64) (float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	data := o.input.GetData()
	for i, f := range o.features {
		data[i] = float32(x[f])
	}
	if err := o.session.Run(); err != nil {
		return 0, fmt.Errorf("onnx run: %v: %w", err, ErrBackend)
	}
	return float64(o.output.GetData()[0]), nil
}

func (o *onnxSession) close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var errs []string
	for _, d := range []interface{ Destroy() error }{o.session, o.input, o.output} {
		if err := d.Destroy(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("destroy onnx session: %s", strings.Join(errs, "; "))
	}
	return nil
}

// resolveSharedLibraryPath locates a platform onnxruntime library. The
// ONNXRUNTIME_SHARED_LIBRARY_PATH environment variable wins.
func resolveSharedLibraryPath(dir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}
	names := []string{
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"libonnxruntime.so",
		"onnxruntime.so",
		"onnxruntime.dll",
	}
	dirs := []string{
		dir,
		filepath.Join(dir, "lib"),
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}
	for _, d := range dirs {
		for _, name := range names {
			candidate := filepath.Join(d, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
