// Package ui implements an interactive terminal dashboard using bubbletea's Elm architecture.
//
// The dashboard renders one page of the upload listing with live status overlays:
//  1. [ListView] : Browse the current page, move between pages
//  2. [SearchView] : Edit the filename filter
//  3. [ConfirmView] : Confirm deleting one upload or clearing all of them
//  4. [DetailView] : Show extracted text and generated flashcards rendered as Markdown; c copies the cards
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Session callbacks flow through a [Bridge] channel, so status events and alerts reach the update loop without blocking
// the push channel. Alerts are shown as toasts that expire after [ToastTTL] or when esc is pressed.
//
// Keyboard navigation uses vim-style bindings (j/k, h/l, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
