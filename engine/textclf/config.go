package textclf

import (
	"fmt"

	"github.com/compozy/trainconf/engine/core"
	"github.com/compozy/trainconf/engine/trainer"
)

const TaskTarget = core.Target("pytext.contrib.pytext_lib.tasks.fb_doc_classification_task.DocClassificationTask")

// ProjectDefaults is the defaults list of the "config" document.
func ProjectDefaults() []map[string]string {
	return []map[string]string{
		{"data": "sst2"},
		{"transform": "roberta"},
		{"model": "xlmr_base"},
		{"optim": "fairseq_adam"},
		{"trainer": "cpu"},
	}
}

// DocClassificationConfig is the flat run document composed from the
// top-level data, transform, model, optim and trainer groups.
type DocClassificationConfig struct {
	Data           *DataConf                        `koanf:"data"            validate:"required"`
	Transform      core.Node                        `koanf:"transform"       validate:"required"`
	Model          *RobertaModelConf                `koanf:"model"           validate:"required"`
	Optim          *OptimConf                       `koanf:"optim"           validate:"required"`
	MetricReporter ClassificationMetricReporterConf `koanf:"metric_reporter"`
	Trainer        trainer.Conf                     `koanf:"trainer"`
	Defaults       []map[string]string              `koanf:"defaults"`
}

func DefaultDocClassificationConfig() DocClassificationConfig {
	return DocClassificationConfig{
		MetricReporter: DefaultClassificationMetricReporterConf(),
		Trainer:        trainer.Default(),
		Defaults:       ProjectDefaults(),
	}
}

// TaskConf wires a transform, data module, model, optimizer and metric
// reporter into a classification task.
type TaskConf struct {
	Target     core.Target `koanf:"_target_"   validate:"target"`
	Transform  core.Node   `koanf:"transform"  validate:"required"`
	Datamodule core.Node   `koanf:"datamodule" validate:"required"`
	Model      core.Node   `koanf:"model"      validate:"required"`
	Optim      *OptimConf  `koanf:"optim"      validate:"required"`
	Metric     core.Node   `koanf:"metric"`
}

func DefaultTaskConf() TaskConf {
	return TaskConf{
		Target: TaskTarget,
		Metric: mustNode(DefaultClassificationMetricReporterConf()),
	}
}

// PyTextConf is the nested run document: a task plus trainer settings.
type PyTextConf struct {
	Task    TaskConf     `koanf:"task"`
	Trainer trainer.Conf `koanf:"trainer"`
	UseMock bool         `koanf:"use_mock"`
}

func DefaultPyTextConf() PyTextConf {
	return PyTextConf{
		Task:    DefaultTaskConf(),
		Trainer: trainer.Default(),
	}
}

func mustNode(record any) core.Node {
	node, err := core.AsMap(record)
	if err != nil {
		panic(fmt.Sprintf("textclf: invalid default record %T: %v", record, err))
	}
	return node
}
