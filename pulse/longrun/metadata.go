package longrun

// Service identity.
const (
	ServiceName        = "Long Running service"
	ServiceAlias       = "example/run"
	ServiceDescription = "A service to test long-running asynchronous services"
)

// Synchronicity values. Jobs of this service outlive the request that started them.
const SynchronicityAsynchronousDetached = "asynchronous_detached"

// EDAMPrefix is the ontology namespace category terms are drawn from.
const EDAMPrefix = "http://edamontology.org/"

// SchemaTerm is an ontology term describing what a service does.
type SchemaTerm struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Metadata describes the service to discovery clients.
type Metadata struct {
	Name          string     `json:"name"`
	Alias         string     `json:"alias"`
	Description   string     `json:"description"`
	Synchronicity string     `json:"synchronicity"`
	Category      SchemaTerm `json:"category"`
}

// ServiceMetadata returns the fixed description of this service.
func ServiceMetadata() Metadata {
	return Metadata{
		Name:          ServiceName,
		Alias:         ServiceAlias,
		Description:   ServiceDescription,
		Synchronicity: SynchronicityAsynchronousDetached,
		Category: SchemaTerm{
			URL:         EDAMPrefix + "operation_0304",
			Name:        "Query and retrieval",
			Description: "Search or query a data resource and retrieve entries and / or annotation.",
		},
	}
}

// ProtocolInline marks a resource whose data is carried in the response itself.
const ProtocolInline = "inline"

// ResultsTitle names the single resource a job's results are wrapped in.
const ResultsTitle = "Long Runner"

// IntervalData is the payload of a job's results: when it ran.
type IntervalData struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Resource is a result wrapped in the inline resource convention.
type Resource struct {
	Protocol string       `json:"protocol"`
	Title    string       `json:"title"`
	Data     IntervalData `json:"data"`
}
