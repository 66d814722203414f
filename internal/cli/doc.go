// Package cli implements the command-line interface for fisica-eventos.
//
// The cli package provides the Cobra-based commands: buscar runs one region
// query and prints the events as text, JSON or iCalendar; servir starts the
// web interface; regioes lists the known regions and their aliases. Global
// flags are bound into Viper so every one of them can also be set through a
// FISICA_EVENTOS_* environment variable or a .env file.
package cli
