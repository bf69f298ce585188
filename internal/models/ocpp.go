package models

// OCPP 2.0.1 device-management message types, as they arrive from the gateway.
// Only the fields the device model persists are declared; customData is ignored.

type AttributeEnum string

const (
	AttributeActual AttributeEnum = "Actual"
	AttributeTarget AttributeEnum = "Target"
	AttributeMinSet AttributeEnum = "MinSet"
	AttributeMaxSet AttributeEnum = "MaxSet"
)

type DataEnum string

const (
	DataString       DataEnum = "string"
	DataDecimal      DataEnum = "decimal"
	DataInteger      DataEnum = "integer"
	DataDateTime     DataEnum = "dateTime"
	DataBoolean      DataEnum = "boolean"
	DataOptionList   DataEnum = "OptionList"
	DataSequenceList DataEnum = "SequenceList"
	DataMemberList   DataEnum = "MemberList"
)

type MutabilityEnum string

const (
	MutabilityReadOnly  MutabilityEnum = "ReadOnly"
	MutabilityWriteOnly MutabilityEnum = "WriteOnly"
	MutabilityReadWrite MutabilityEnum = "ReadWrite"
)

// GetVariableStatusEnum is attributeStatus of a GetVariableResult.
type GetVariableStatusEnum string

const (
	GetVariableAccepted                  GetVariableStatusEnum = "Accepted"
	GetVariableRejected                  GetVariableStatusEnum = "Rejected"
	GetVariableUnknownComponent          GetVariableStatusEnum = "UnknownComponent"
	GetVariableUnknownVariable           GetVariableStatusEnum = "UnknownVariable"
	GetVariableNotSupportedAttributeType GetVariableStatusEnum = "NotSupportedAttributeType"
)

// SetVariableStatusEnum is attributeStatus of a SetVariableResult.
type SetVariableStatusEnum string

const (
	SetVariableAccepted                  SetVariableStatusEnum = "Accepted"
	SetVariableRejected                  SetVariableStatusEnum = "Rejected"
	SetVariableUnknownComponent          SetVariableStatusEnum = "UnknownComponent"
	SetVariableUnknownVariable           SetVariableStatusEnum = "UnknownVariable"
	SetVariableNotSupportedAttributeType SetVariableStatusEnum = "NotSupportedAttributeType"
	SetVariableRebootRequired            SetVariableStatusEnum = "RebootRequired"
)

type EVSEType struct {
	ID          int  `json:"id"`
	ConnectorID *int `json:"connectorId,omitempty"`
}

type ComponentType struct {
	Name     string    `json:"name"`
	Instance *string   `json:"instance,omitempty"`
	Evse     *EVSEType `json:"evse,omitempty"`
}

type VariableType struct {
	Name     string  `json:"name"`
	Instance *string `json:"instance,omitempty"`
}

type VariableAttributeType struct {
	Type       *AttributeEnum  `json:"type,omitempty"`
	Value      *string         `json:"value,omitempty"`
	Mutability *MutabilityEnum `json:"mutability,omitempty"`
	Persistent *bool           `json:"persistent,omitempty"`
	Constant   *bool           `json:"constant,omitempty"`
}

// EffectiveType is the attribute type with the protocol default applied.
func (a VariableAttributeType) EffectiveType() AttributeEnum {
	return EffectiveType(a.Type)
}

type VariableCharacteristicsType struct {
	Unit               *string  `json:"unit,omitempty"`
	DataType           DataEnum `json:"dataType"`
	MinLimit           *float64 `json:"minLimit,omitempty"`
	MaxLimit           *float64 `json:"maxLimit,omitempty"`
	ValuesList         *string  `json:"valuesList,omitempty"`
	SupportsMonitoring bool     `json:"supportsMonitoring"`
}

type ReportDataType struct {
	Component               ComponentType                `json:"component"`
	Variable                VariableType                 `json:"variable"`
	VariableAttribute       []VariableAttributeType      `json:"variableAttribute"`
	VariableCharacteristics *VariableCharacteristicsType `json:"variableCharacteristics,omitempty"`
}

type StatusInfoType struct {
	ReasonCode     string  `json:"reasonCode"`
	AdditionalInfo *string `json:"additionalInfo,omitempty"`
}

type GetVariableResultType struct {
	AttributeStatus     GetVariableStatusEnum `json:"attributeStatus"`
	AttributeStatusInfo *StatusInfoType       `json:"attributeStatusInfo,omitempty"`
	AttributeType       *AttributeEnum        `json:"attributeType,omitempty"`
	AttributeValue      *string               `json:"attributeValue,omitempty"`
	Component           ComponentType         `json:"component"`
	Variable            VariableType          `json:"variable"`
}

type SetVariableDataType struct {
	AttributeType  *AttributeEnum `json:"attributeType,omitempty"`
	AttributeValue string         `json:"attributeValue"`
	Component      ComponentType  `json:"component"`
	Variable       VariableType   `json:"variable"`
}

type SetVariableResultType struct {
	AttributeType       *AttributeEnum        `json:"attributeType,omitempty"`
	AttributeStatus     SetVariableStatusEnum `json:"attributeStatus"`
	AttributeStatusInfo *StatusInfoType       `json:"attributeStatusInfo,omitempty"`
	Component           ComponentType         `json:"component"`
	Variable            VariableType          `json:"variable"`
}

// EffectiveType returns t, or Actual when t is absent.
func EffectiveType(t *AttributeEnum) AttributeEnum {
	if t == nil || *t == "" {
		return AttributeActual
	}
	return *t
}
