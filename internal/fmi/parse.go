package fmi

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
)

// The xml* types mirror only the parts of modelDescription.xml the master
// consumes. Both FMI 1.0 and 2.0 documents decode into the same tree.

type xmlModelDescription struct {
	XMLName         xml.Name           `xml:"fmiModelDescription"`
	FMIVersion      string             `xml:"fmiVersion,attr"`
	ModelName       string             `xml:"modelName,attr"`
	ModelIdentifier string             `xml:"modelIdentifier,attr"` // 1.0
	GUID            string             `xml:"guid,attr"`
	CoSimulation    *xmlCoSimulation   `xml:"CoSimulation"`  // 2.0
	ModelExchange   *xmlModelExchange  `xml:"ModelExchange"` // 2.0
	Implementation  *xmlImplementation `xml:"Implementation"`
	TypeDefinitions xmlTypeDefinitions `xml:"TypeDefinitions"`
	ModelVariables  []xmlScalar        `xml:"ModelVariables>ScalarVariable"`
}

type xmlCoSimulation struct {
	ModelIdentifier       string `xml:"modelIdentifier,attr"`
	CanHandleVariableStep bool   `xml:"canHandleVariableCommunicationStepSize,attr"`
	CanGetAndSetState     bool   `xml:"canGetAndSetFMUstate,attr"`
	CanSerializeState     bool   `xml:"canSerializeFMUstate,attr"`
}

type xmlModelExchange struct {
	ModelIdentifier string `xml:"modelIdentifier,attr"`
}

type xmlImplementation struct {
	StandAlone *xmlCapabilitiesHolder `xml:"CoSimulation_StandAlone"`
	Tool       *xmlCapabilitiesHolder `xml:"CoSimulation_Tool"`
}

type xmlCapabilitiesHolder struct {
	Capabilities struct {
		CanHandleVariableStep bool `xml:"canHandleVariableCommunicationStepSize,attr"`
	} `xml:"Capabilities"`
}

type xmlTypeDefinitions struct {
	SimpleTypes []struct { // 2.0
		Name string    `xml:"name,attr"`
		Real *xmlTyped `xml:"Real"`
	} `xml:"SimpleType"`
	Types []struct { // 1.0
		Name     string    `xml:"name,attr"`
		RealType *xmlTyped `xml:"RealType"`
	} `xml:"Type"`
}

type xmlScalar struct {
	Name           string    `xml:"name,attr"`
	ValueReference *string   `xml:"valueReference,attr"`
	Description    string    `xml:"description,attr"`
	Causality      string    `xml:"causality,attr"`
	Variability    string    `xml:"variability,attr"`
	Real           *xmlTyped `xml:"Real"`
	Integer        *xmlTyped `xml:"Integer"`
	Boolean        *xmlTyped `xml:"Boolean"`
	String         *xmlTyped `xml:"String"`
	Enumeration    *xmlTyped `xml:"Enumeration"`
}

type xmlTyped struct {
	Start        *string `xml:"start,attr"`
	Unit         string  `xml:"unit,attr"`
	DeclaredType string  `xml:"declaredType,attr"`
}

// ParseModelDescription decodes a slave self-description. Invalid variables
// do not fail the parse: they are logged and collected in Descriptor.Rejected
// so that the rest of the slave stays usable. Only document-level problems
// (malformed XML, missing identifier or GUID, unknown version) are errors.
func ParseModelDescription(ctx context.Context, r io.Reader, path string) (*Descriptor, error) {
	logger := ctxlog.FromContext(ctx).With("descriptor", path)

	var doc xmlModelDescription
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode model description %s: %w", path, err)
	}

	d := &Descriptor{
		Path:       path,
		FMIVersion: doc.FMIVersion,
		ModelName:  doc.ModelName,
		GUID:       doc.GUID,
	}

	isV1 := strings.HasPrefix(doc.FMIVersion, "1.")
	switch {
	case isV1:
		d.ModelIdentifier = doc.ModelIdentifier
		if impl := doc.Implementation; impl != nil && (impl.StandAlone != nil || impl.Tool != nil) {
			d.Kinds = CoSimulation
			holder := impl.StandAlone
			if holder == nil {
				holder = impl.Tool
			}
			d.Capabilities.CanHandleVariableStep = holder.Capabilities.CanHandleVariableStep
		} else {
			d.Kinds = ModelExchange
		}
	case strings.HasPrefix(doc.FMIVersion, "2."):
		if cs := doc.CoSimulation; cs != nil {
			d.Kinds |= CoSimulation
			d.ModelIdentifier = cs.ModelIdentifier
			d.Capabilities = Capabilities{
				CanHandleVariableStep: cs.CanHandleVariableStep,
				CanGetAndSetState:     cs.CanGetAndSetState,
				CanSerializeState:     cs.CanSerializeState,
			}
		}
		if me := doc.ModelExchange; me != nil {
			d.Kinds |= ModelExchange
			if d.ModelIdentifier == "" {
				d.ModelIdentifier = me.ModelIdentifier
			}
		}
	default:
		return nil, fmt.Errorf("model description %s: unsupported fmiVersion %q", path, doc.FMIVersion)
	}

	if d.ModelIdentifier == "" {
		return nil, fmt.Errorf("model description %s: missing model identifier", path)
	}
	if d.GUID == "" {
		return nil, fmt.Errorf("model description %s: missing guid", path)
	}

	units := make(map[string]string)
	for _, st := range doc.TypeDefinitions.SimpleTypes {
		if st.Real != nil && st.Real.Unit != "" {
			units[st.Name] = st.Real.Unit
		}
	}
	for _, t := range doc.TypeDefinitions.Types {
		if t.RealType != nil && t.RealType.Unit != "" {
			units[t.Name] = t.RealType.Unit
		}
	}

	seen := make(map[string]struct{}, len(doc.ModelVariables))
	for i := range doc.ModelVariables {
		raw := &doc.ModelVariables[i]
		v, err := translateScalar(raw, isV1, units)
		if err == nil {
			if _, dup := seen[v.Name]; dup {
				err = fmt.Errorf("variable %q is declared more than once", v.Name)
			}
		}
		if err != nil {
			logger.Error("Rejecting variable from model description.", "index", i, "error", err)
			d.Rejected = append(d.Rejected, err)
			continue
		}
		if v.Enumeration && v.NeedsStart() && v.Start == nil {
			logger.Warn("Enumeration variable has no start value, defaulting to 0.", "variable", v.Name)
			zero := "0"
			v.Start = &zero
		}
		if err := v.Validate(); err != nil {
			logger.Error("Rejecting variable from model description.", "variable", v.Name, "error", err)
			d.Rejected = append(d.Rejected, err)
			continue
		}
		seen[v.Name] = struct{}{}
		d.Variables = append(d.Variables, v)
	}
	d.index()

	logger.Debug("Model description parsed.",
		"fmi_version", d.FMIVersion,
		"model_identifier", d.ModelIdentifier,
		"kinds", d.Kinds.String(),
		"variables", len(d.Variables),
		"rejected", len(d.Rejected),
	)
	return d, nil
}

// translateScalar converts one ScalarVariable element. It never applies the
// enumeration start default; the caller owns that policy.
func translateScalar(raw *xmlScalar, isV1 bool, units map[string]string) (*Variable, error) {
	if raw.Name == "" {
		return nil, errors.New("variable has an empty name")
	}
	if raw.ValueReference == nil {
		return nil, fmt.Errorf("variable %q: missing valueReference", raw.Name)
	}
	vr, err := strconv.ParseUint(strings.TrimSpace(*raw.ValueReference), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("variable %q: invalid valueReference %q: %w", raw.Name, *raw.ValueReference, err)
	}

	v := &Variable{
		Name:           raw.Name,
		ValueReference: uint32(vr),
		Description:    raw.Description,
		Causality:      parseCausality(raw.Causality),
		Variability:    raw.Variability,
	}
	if v.Variability == "" {
		v.Variability = "continuous"
	}
	if isV1 {
		switch {
		case raw.Causality == "none":
			v.Causality = Other
		case v.Variability == "parameter" && (raw.Causality == "" || raw.Causality == "internal"):
			v.Causality = Parameter
		}
	}

	var typed *xmlTyped
	switch {
	case raw.Real != nil:
		v.Type, typed = Real, raw.Real
	case raw.Integer != nil:
		v.Type, typed = Integer, raw.Integer
	case raw.Boolean != nil:
		v.Type, typed = Boolean, raw.Boolean
	case raw.String != nil:
		v.Type, typed = String, raw.String
	case raw.Enumeration != nil:
		v.Type, typed = Integer, raw.Enumeration
		v.Enumeration = true
	default:
		return nil, fmt.Errorf("variable %q: missing type element", raw.Name)
	}

	v.Start = typed.Start
	v.DeclaredType = typed.DeclaredType
	if v.Type == Real {
		v.Unit = typed.Unit
		if v.Unit == "" && v.DeclaredType != "" {
			v.Unit = units[v.DeclaredType]
		}
	}
	return v, nil
}
