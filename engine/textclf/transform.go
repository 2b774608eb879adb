package textclf

import "github.com/compozy/trainconf/engine/core"

const (
	DocTransformTarget     = core.Target("pytext.contrib.pytext_lib.transforms.fb_doc_transform.DocTransform")
	RobertaTransformTarget = core.Target("pytext.contrib.pytext_lib.transforms.fb_roberta.RobertaTransform")
	XlmrTransformTarget    = core.Target("pytext.contrib.pytext_lib.transforms.fb_roberta.XlmrTransform")
	PairTransformTarget    = core.Target("pytext.contrib.pytext_lib.transforms.fb_pair_transform.PairTransform")
)

// TransformConf is the base of every transform record.
type TransformConf struct {
	LabelNames []string `koanf:"label_names"`
}

func defaultTransformConf() TransformConf {
	return TransformConf{LabelNames: []string{"True", "False"}}
}

type DocTransformConf struct {
	TransformConf `koanf:",squash,flatten"`
	Target        core.Target `koanf:"_target_"      validate:"target"`
	VocabPath     *string     `koanf:"vocab_path"`
	SpModelPath   *string     `koanf:"sp_model_path"`
}

func DefaultDocTransformConf() DocTransformConf {
	return DocTransformConf{TransformConf: defaultTransformConf(), Target: DocTransformTarget}
}

type RobertaTransformConf struct {
	TransformConf `koanf:",squash,flatten"`
	Target        core.Target `koanf:"_target_" validate:"target"`
}

func DefaultRobertaTransformConf() RobertaTransformConf {
	return RobertaTransformConf{TransformConf: defaultTransformConf(), Target: RobertaTransformTarget}
}

type XlmrTransformConf struct {
	TransformConf `koanf:",squash,flatten"`
	Target        core.Target `koanf:"_target_"      validate:"target"`
	VocabPath     *string     `koanf:"vocab_path"`
	SpModelPath   *string     `koanf:"sp_model_path"`
}

func DefaultXlmrTransformConf() XlmrTransformConf {
	return XlmrTransformConf{TransformConf: defaultTransformConf(), Target: XlmrTransformTarget}
}

// PairTransformConf applies one transform per side of a text pair. An unset
// right side reuses the left one.
type PairTransformConf struct {
	TransformConf  `koanf:",squash,flatten"`
	Target         core.Target `koanf:"_target_"        validate:"target"`
	TransformLeft  core.Node   `koanf:"transform_left"  validate:"required"`
	TransformRight core.Node   `koanf:"transform_right"`
}

func DefaultPairTransformConf() PairTransformConf {
	return PairTransformConf{TransformConf: defaultTransformConf(), Target: PairTransformTarget}
}
