package textclf

import "github.com/compozy/trainconf/engine/core"

const (
	DataModuleTarget = core.Target("pytext.contrib.pytext_lib.data.datamodules.doc_classification.DocClassificationDataModule")
)

// DataConf points a run at its TSV splits.
type DataConf struct {
	TrainPath string   `koanf:"train_path" validate:"required"`
	ValPath   *string  `koanf:"val_path"`
	TestPath  *string  `koanf:"test_path"`
	Columns   []string `koanf:"columns"    validate:"min=1"`
	BatchSize int      `koanf:"batch_size" validate:"gt=0"`
}

func DefaultDataConf() DataConf {
	return DataConf{
		TrainPath: core.Missing,
		Columns:   []string{"text", "label"},
		BatchSize: 8,
	}
}

// DataModuleConf is the base of every data module record.
type DataModuleConf struct{}

// DocClassificationDataModuleConf configures the streaming document
// classification data module.
type DocClassificationDataModuleConf struct {
	DataModuleConf `koanf:"-"`
	Target         core.Target       `koanf:"_target_"       validate:"target"`
	TrainPath      string            `koanf:"train_path"     validate:"required"`
	ValPath        string            `koanf:"val_path"       validate:"required"`
	TestPath       string            `koanf:"test_path"      validate:"required"`
	Columns        []string          `koanf:"columns"        validate:"min=1"`
	ColumnMapping  map[string]string `koanf:"column_mapping"`
	Delimiter      string            `koanf:"delimiter"`
	BatchSize      *int              `koanf:"batch_size"     validate:"omitempty,gt=0"`
	IsShuffle      bool              `koanf:"is_shuffle"`
	ChunkSize      int               `koanf:"chunk_size"     validate:"gt=0"`
	IsCycle        bool              `koanf:"is_cycle"`
	Length         *int              `koanf:"length"         validate:"omitempty,gte=0"`
}

func DefaultDocClassificationDataModuleConf() DocClassificationDataModuleConf {
	return DocClassificationDataModuleConf{
		Target:    DataModuleTarget,
		TrainPath: core.Missing,
		ValPath:   core.Missing,
		TestPath:  core.Missing,
		Columns:   []string{"text", "label"},
		Delimiter: "\t",
		IsShuffle: true,
		ChunkSize: 1000,
	}
}
