package converter

// SpecVersion is the UPnP architecture version of a document
type SpecVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

// DeviceDescription is the JSON form of a root device description
type DeviceDescription struct {
	SpecVersion SpecVersion `json:"specVersion"`
	URLBase     string      `json:"URLBase,omitempty"`
	Device      Device      `json:"device"`
}

// Device is one (possibly embedded) device
type Device struct {
	DeviceType       string    `json:"deviceType"`
	FriendlyName     string    `json:"friendlyName"`
	Manufacturer     string    `json:"manufacturer,omitempty"`
	ManufacturerURL  string    `json:"manufacturerURL,omitempty"`
	ModelDescription string    `json:"modelDescription,omitempty"`
	ModelName        string    `json:"modelName,omitempty"`
	ModelNumber      string    `json:"modelNumber,omitempty"`
	ModelURL         string    `json:"modelURL,omitempty"`
	SerialNumber     string    `json:"serialNumber,omitempty"`
	UDN              string    `json:"UDN"`
	PresentationURL  string    `json:"presentationURL,omitempty"`
	Icons            []Icon    `json:"iconList,omitempty"`
	Services         []Service `json:"serviceList,omitempty"`
	Devices          []Device  `json:"deviceList,omitempty"`
}

// Icon is an entry of a device's icon list
type Icon struct {
	MimeType string `json:"mimetype"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Depth    int    `json:"depth"`
	URL      string `json:"url"`
}

// Service is an entry of a device's service list
type Service struct {
	ServiceType string `json:"serviceType"`
	ServiceID   string `json:"serviceId"`
	SCPDURL     string `json:"SCPDURL"`
	ControlURL  string `json:"controlURL"`
	EventSubURL string `json:"eventSubURL"`
}

// ServiceDescription is the JSON form of an SCPD document
type ServiceDescription struct {
	SpecVersion    SpecVersion     `json:"specVersion"`
	Actions        []Action        `json:"actionList"`
	StateVariables []StateVariable `json:"serviceStateTable"`
}

// Action is a service action
type Action struct {
	Name      string     `json:"name"`
	Arguments []Argument `json:"argumentList"`
}

// Argument is an action argument
type Argument struct {
	Name                 string `json:"name"`
	Direction            string `json:"direction"`
	RelatedStateVariable string `json:"relatedStateVariable"`
}

// StateVariable is an entry of the service state table
type StateVariable struct {
	Name              string      `json:"name"`
	SendEvents        bool        `json:"sendEvents"`
	DataType          string      `json:"dataType"`
	DefaultValue      string      `json:"defaultValue,omitempty"`
	AllowedValues     []string    `json:"allowedValueList,omitempty"`
	AllowedValueRange *ValueRange `json:"allowedValueRange,omitempty"`
}

// ValueRange bounds a numeric state variable
type ValueRange struct {
	Minimum string `json:"minimum"`
	Maximum string `json:"maximum"`
	Step    string `json:"step,omitempty"`
}
