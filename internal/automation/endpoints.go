package automation

// Nombres simbólicos de los flujos de n8n que atiende el engine. Cualquier
// otro nombre se rechaza en el proxy con 400.
const (
	EndpointCreateInstance = "crear-instancia"
	EndpointQR             = "qr"
	EndpointStatus         = "estatus-instancia"
	EndpointDeleteInstance = "eliminar-instancia"
)

var allowedEndpoints = map[string]struct{}{
	EndpointCreateInstance: {},
	EndpointQR:             {},
	EndpointStatus:         {},
	EndpointDeleteInstance: {},
}

func EndpointAllowed(name string) bool {
	_, ok := allowedEndpoints[name]
	return ok
}

// AllowedEndpoints devuelve la lista blanca, para seeds y diagnóstico.
func AllowedEndpoints() []string {
	return []string{EndpointCreateInstance, EndpointQR, EndpointStatus, EndpointDeleteInstance}
}

// CreateInstanceRequest es el cuerpo de crear-instancia.
type CreateInstanceRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// InstanceRequest es el cuerpo de qr, estatus-instancia y eliminar-instancia.
// La correlación con el sistema externo es por nombre, no por id.
type InstanceRequest struct {
	Name string `json:"name"`
}
