package schema

// ShapeKind enumerates the vertex shapes a document can hold.
type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeRounded   ShapeKind = "rounded"
	ShapeEllipse   ShapeKind = "ellipse"
	ShapeRhombus   ShapeKind = "rhombus"
	ShapeHexagon   ShapeKind = "hexagon"
	ShapeCylinder  ShapeKind = "cylinder"
	ShapeCloud     ShapeKind = "cloud"
	ShapeActor     ShapeKind = "actor"
	ShapeNote      ShapeKind = "note"
	ShapeSwimlane  ShapeKind = "swimlane"
)

// ShapeKinds lists every ShapeKind in catalog order.
var ShapeKinds = []ShapeKind{
	ShapeRectangle, ShapeRounded, ShapeEllipse, ShapeRhombus, ShapeHexagon,
	ShapeCylinder, ShapeCloud, ShapeActor, ShapeNote, ShapeSwimlane,
}

// ConnectorKind enumerates edge routing styles.
type ConnectorKind string

const (
	ConnectorStraight   ConnectorKind = "straight"
	ConnectorOrthogonal ConnectorKind = "orthogonal"
	ConnectorCurved     ConnectorKind = "curved"
	ConnectorDashed     ConnectorKind = "dashed"
	ConnectorDotted     ConnectorKind = "dotted"
)

// ConnectorKinds lists every ConnectorKind.
var ConnectorKinds = []ConnectorKind{
	ConnectorStraight, ConnectorOrthogonal, ConnectorCurved, ConnectorDashed, ConnectorDotted,
}

// StepKind enumerates flowchart step types.
type StepKind string

const (
	StepStart    StepKind = "start"
	StepEnd      StepKind = "end"
	StepProcess  StepKind = "process"
	StepDecision StepKind = "decision"
	StepInput    StepKind = "input"
	StepOutput   StepKind = "output"
)

// StepKinds lists every StepKind.
var StepKinds = []StepKind{StepStart, StepEnd, StepProcess, StepDecision, StepInput, StepOutput}

// DiagramType tags a stored diagram.
type DiagramType string

const (
	DiagramFlowchart      DiagramType = "flowchart"
	DiagramSequence       DiagramType = "sequence"
	DiagramClass          DiagramType = "class"
	DiagramER             DiagramType = "er"
	DiagramNetwork        DiagramType = "network"
	DiagramInfrastructure DiagramType = "infrastructure"
	DiagramCustom         DiagramType = "custom"
)

// DiagramTypes lists every DiagramType.
var DiagramTypes = []DiagramType{
	DiagramFlowchart, DiagramSequence, DiagramClass, DiagramER,
	DiagramNetwork, DiagramInfrastructure, DiagramCustom,
}

// OutputFormat selects whether the wrapped body is compressed.
type OutputFormat string

const (
	FormatUncompressed OutputFormat = "uncompressed"
	FormatCompressed   OutputFormat = "compressed"
)

// FlowchartStep is one caller-supplied node of a flowchart request.
// DecisionLabels align positionally with Next.
type FlowchartStep struct {
	ID             string   `json:"id"`
	Type           StepKind `json:"type"`
	Text           string   `json:"text"`
	Next           []string `json:"next,omitempty"`
	DecisionLabels []string `json:"decision_labels,omitempty"`
}

// Label returns the branch label for successor i, or "".
func (s FlowchartStep) Label(i int) string {
	if i < len(s.DecisionLabels) {
		return s.DecisionLabels[i]
	}
	return ""
}
