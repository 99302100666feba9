package dashboard

// PanelType is the Grafana visualization plugin id of a panel. Values outside
// the known set are kept as-is so newer Grafana panel plugins survive a
// round trip.
type PanelType string

const (
	PanelTimeseries PanelType = "timeseries"
	PanelTable      PanelType = "table"
	PanelStat       PanelType = "stat"
	PanelGauge      PanelType = "gauge"
	PanelBarGauge   PanelType = "bargauge"
	PanelHeatmap    PanelType = "heatmap"
	PanelPieChart   PanelType = "piechart"
	PanelText       PanelType = "text"
	PanelLogs       PanelType = "logs"
	PanelAlertList  PanelType = "alertlist"
	PanelGraph      PanelType = "graph"
	PanelRow        PanelType = "row"
	PanelDashList   PanelType = "dashlist"
	PanelNews       PanelType = "news"
	PanelPluginList PanelType = "pluginlist"
)

var knownPanelTypes = map[PanelType]bool{
	PanelTimeseries: true,
	PanelTable:      true,
	PanelStat:       true,
	PanelGauge:      true,
	PanelBarGauge:   true,
	PanelHeatmap:    true,
	PanelPieChart:   true,
	PanelText:       true,
	PanelLogs:       true,
	PanelAlertList:  true,
	PanelGraph:      true,
	PanelRow:        true,
	PanelDashList:   true,
	PanelNews:       true,
	PanelPluginList: true,
}

// Known reports whether t is one of the panel types this package recognises.
func (t PanelType) Known() bool {
	return knownPanelTypes[t]
}

// queriesData reports whether panels of this type are expected to carry targets.
func (t PanelType) queriesData() bool {
	switch t {
	case PanelText, PanelRow, PanelDashList, PanelNews, PanelPluginList, PanelAlertList:
		return false
	}
	return true
}

// VariableType is the kind of a templating variable.
type VariableType string

const (
	VariableQuery      VariableType = "query"
	VariableCustom     VariableType = "custom"
	VariableConstant   VariableType = "constant"
	VariableDatasource VariableType = "datasource"
	VariableInterval   VariableType = "interval"
	VariableTextbox    VariableType = "textbox"
	VariableAdhoc      VariableType = "adhoc"
)

// Valid reports whether t is a variable type Grafana understands.
func (t VariableType) Valid() bool {
	switch t {
	case VariableQuery, VariableCustom, VariableConstant, VariableDatasource,
		VariableInterval, VariableTextbox, VariableAdhoc:
		return true
	}
	return false
}

// Grid and document defaults.
const (
	GridColumns          = 24
	DefaultPanelWidth    = 12
	DefaultPanelHeight   = 8
	DefaultSchemaVersion = 39
	DefaultRefresh       = "5s"
	DefaultTimeFrom      = "now-1h"
	DefaultTimeTo        = "now"
	DefaultColumns       = 2
	DefaultTargetFormat  = "time_series"
)
