// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the UI components for the sessionguard monitor.

Components are plain renderers over session.Status snapshots. They hold no
session logic: every action is reported back to the app as a key binding
and forwarded to the session manager.

# Components

SessionDialog (session_dialog.go) - Modal for the session warning, the
inactivity warning and the expired notice, with live countdowns.

ToastManager (toast.go) - Auto-dismissing corner notifications. Implements
notify.Notifier so the session manager posts renewal results directly.

StatusBar (statusbar.go) - Bottom bar with state, time left and key hints.

Header (header.go) - Title bar with the instance id.

RenderSessionPanel (session_panel.go) - Main session summary.

KeyMap (keys.go) - bubbles/key bindings, implements help.KeyMap.

# Accessibility

Every state color is paired with an ASCII indicator from
styles.StatusIndicators.
*/
package components
