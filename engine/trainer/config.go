package trainer

import (
	"fmt"

	"github.com/compozy/trainconf/engine/core"
	"github.com/compozy/trainconf/engine/store"
)

const (
	Group  = "trainer"
	Target = core.Target("pytorch_lightning.Trainer")
)

func init() { //nolint:gochecknoinits // populate the process-wide store on import
	if err := Register(store.Instance()); err != nil {
		panic(fmt.Sprintf("trainer: failed to register configs: %v", err))
	}
}

// Conf holds the trainer arguments embedded in top-level run configs.
type Conf struct {
	Target                core.Target `koanf:"_target_"                validate:"target"`
	Accelerator           *string     `koanf:"accelerator"             validate:"omitempty,oneof=dp ddp ddp_cpu ddp_spawn ddp2"`
	Gpus                  int         `koanf:"gpus"                    validate:"gte=0"`
	NumNodes              int         `koanf:"num_nodes"               validate:"gte=1"`
	Precision             int         `koanf:"precision"               validate:"oneof=16 32 64"`
	MaxEpochs             int         `koanf:"max_epochs"              validate:"gte=1"`
	MinEpochs             int         `koanf:"min_epochs"              validate:"gte=0,ltefield=MaxEpochs"`
	MaxSteps              *int        `koanf:"max_steps"               validate:"omitempty,gte=1"`
	AccumulateGradBatches int         `koanf:"accumulate_grad_batches" validate:"gte=1"`
	GradientClipVal       float64     `koanf:"gradient_clip_val"       validate:"gte=0"`
	ValCheckInterval      float64     `koanf:"val_check_interval"      validate:"gt=0"`
	LimitTrainBatches     float64     `koanf:"limit_train_batches"     validate:"gt=0"`
	LimitValBatches       float64     `koanf:"limit_val_batches"       validate:"gte=0"`
	DefaultRootDir        *string     `koanf:"default_root_dir"`
	Deterministic         bool        `koanf:"deterministic"`
	Benchmark             bool        `koanf:"benchmark"`
	FastDevRun            bool        `koanf:"fast_dev_run"`
}

// Default returns the trainer settings used when a run selects no variant.
func Default() Conf {
	return Conf{
		Target:                Target,
		NumNodes:              1,
		Precision:             32,
		MaxEpochs:             1000,
		MinEpochs:             1,
		AccumulateGradBatches: 1,
		ValCheckInterval:      1.0,
		LimitTrainBatches:     1.0,
		LimitValBatches:       1.0,
	}
}

// CPU trains on the host CPU.
func CPU() Conf {
	return Default()
}

// GPU trains on a single GPU with mixed precision.
func GPU() Conf {
	conf := Default()
	conf.Gpus = 1
	conf.Precision = 16
	return conf
}

// Register adds the trainer variants to s.
func Register(s *store.Store) error {
	if err := s.Register(Group, "cpu", CPU()); err != nil {
		return err
	}
	return s.Register(Group, "gpu", GPU())
}
