// Package ui provides terminal output for the jsonupnp-cli commands.
//
// Components are rendered with Lipgloss and written once (Header, Table,
// Result through a Printer). The watch command is the one interactive view:
// WatchModel is a Bubble Tea model that polls a proxy's /devices endpoint
// and redraws the device table with a spinner while a refresh is in flight.
//
// Example:
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Devices", "jsonupnp-cli devices", ui.Param{Key: "Proxy", Value: base})
//	p.PrintTable(ui.DeviceTable(list, time.Now(), p.Width()))
package ui
