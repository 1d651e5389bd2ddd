// Package converter turns UPnP XML descriptions into JSON-ready structures.
//
// Device descriptions decode into goupnp.RootDevice and service (SCPD)
// descriptions into scpd.SCPD; both are then mapped onto the JSON-tagged
// types below. Conversion is pure and safe for concurrent use.
package converter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/huin/goupnp"
	"github.com/huin/goupnp/scpd"
	"golang.org/x/net/html/charset"

	"github.com/muurk/jsonupnp/internal/proxyerr"
)

// DocType selects the description schema
type DocType int

const (
	// DocDevice is a root device description (<root>)
	DocDevice DocType = iota
	// DocService is a service control protocol description (<scpd>)
	DocService
)

// String returns the document type name
func (t DocType) String() string {
	switch t {
	case DocDevice:
		return "device"
	case DocService:
		return "service"
	default:
		return fmt.Sprintf("doctype(%d)", int(t))
	}
}

// Convert decodes raw and returns a *DeviceDescription or a
// *ServiceDescription depending on docType
func Convert(raw []byte, docType DocType) (any, error) {
	switch docType {
	case DocDevice:
		return ConvertDevice(raw)
	case DocService:
		return ConvertService(raw)
	default:
		return nil, proxyerr.NewConversionError(fmt.Sprintf("unsupported document type %s", docType), nil)
	}
}

func decode(raw []byte, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("empty document")
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel
	return dec.Decode(v)
}

// ConvertDevice maps a device description
func ConvertDevice(raw []byte) (*DeviceDescription, error) {
	var root goupnp.RootDevice
	if err := decode(raw, &root); err != nil {
		return nil, proxyerr.NewConversionError("failed to parse device description", err)
	}
	if root.XMLName.Local != "root" {
		return nil, proxyerr.NewConversionError(fmt.Sprintf("unexpected root element <%s>", root.XMLName.Local), nil)
	}
	if strings.TrimSpace(root.Device.DeviceType) == "" && strings.TrimSpace(root.Device.UDN) == "" {
		return nil, proxyerr.NewConversionError("device description has no device element", nil)
	}

	return &DeviceDescription{
		SpecVersion: SpecVersion{
			Major: int(root.SpecVersion.Major),
			Minor: int(root.SpecVersion.Minor),
		},
		URLBase: strings.TrimSpace(root.URLBaseStr),
		Device:  convertDevice(&root.Device),
	}, nil
}

func convertDevice(d *goupnp.Device) Device {
	out := Device{
		DeviceType:       strings.TrimSpace(d.DeviceType),
		FriendlyName:     strings.TrimSpace(d.FriendlyName),
		Manufacturer:     strings.TrimSpace(d.Manufacturer),
		ManufacturerURL:  field(d.ManufacturerURL),
		ModelDescription: strings.TrimSpace(d.ModelDescription),
		ModelName:        strings.TrimSpace(d.ModelName),
		ModelNumber:      strings.TrimSpace(d.ModelNumber),
		ModelURL:         field(d.ModelURL),
		SerialNumber:     strings.TrimSpace(d.SerialNumber),
		UDN:              strings.TrimSpace(d.UDN),
		PresentationURL:  field(d.PresentationURL),
	}

	for _, icon := range d.Icons {
		out.Icons = append(out.Icons, Icon{
			MimeType: strings.TrimSpace(icon.Mimetype),
			Width:    int(icon.Width),
			Height:   int(icon.Height),
			Depth:    int(icon.Depth),
			URL:      field(icon.URL),
		})
	}
	for _, svc := range d.Services {
		out.Services = append(out.Services, Service{
			ServiceType: strings.TrimSpace(svc.ServiceType),
			ServiceID:   strings.TrimSpace(svc.ServiceId),
			SCPDURL:     field(svc.SCPDURL),
			ControlURL:  field(svc.ControlURL),
			EventSubURL: field(svc.EventSubURL),
		})
	}
	for i := range d.Devices {
		out.Devices = append(out.Devices, convertDevice(&d.Devices[i]))
	}

	return out
}

func field(u goupnp.URLField) string {
	return strings.TrimSpace(u.Str)
}

// ConvertService maps an SCPD service description
func ConvertService(raw []byte) (*ServiceDescription, error) {
	var doc scpd.SCPD
	if err := decode(raw, &doc); err != nil {
		return nil, proxyerr.NewConversionError("failed to parse service description", err)
	}
	if doc.XMLName.Local != "scpd" {
		return nil, proxyerr.NewConversionError(fmt.Sprintf("unexpected root element <%s>", doc.XMLName.Local), nil)
	}

	out := &ServiceDescription{
		SpecVersion: SpecVersion{
			Major: int(doc.SpecVersion.Major),
			Minor: int(doc.SpecVersion.Minor),
		},
		Actions:        []Action{},
		StateVariables: []StateVariable{},
	}

	for _, a := range doc.Actions {
		action := Action{Name: strings.TrimSpace(a.Name), Arguments: []Argument{}}
		for _, arg := range a.Arguments {
			action.Arguments = append(action.Arguments, Argument{
				Name:                 strings.TrimSpace(arg.Name),
				Direction:            strings.TrimSpace(arg.Direction),
				RelatedStateVariable: strings.TrimSpace(arg.RelatedStateVariable),
			})
		}
		out.Actions = append(out.Actions, action)
	}

	for _, sv := range doc.StateVariables {
		v := StateVariable{
			Name:          strings.TrimSpace(sv.Name),
			SendEvents:    strings.EqualFold(strings.TrimSpace(sv.SendEvents), "yes"),
			DataType:      strings.TrimSpace(sv.DataType.Name),
			DefaultValue:  strings.TrimSpace(sv.DefaultValue),
			AllowedValues: trimAll(sv.AllowedValues),
		}
		if r := sv.AllowedValueRange; r != nil {
			v.AllowedValueRange = &ValueRange{
				Minimum: strings.TrimSpace(r.Minimum),
				Maximum: strings.TrimSpace(r.Maximum),
				Step:    strings.TrimSpace(r.Step),
			}
		}
		out.StateVariables = append(out.StateVariables, v)
	}

	return out, nil
}

func trimAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
