package platform

import (
	stderrors "errors"
	"sync"
	"sync/atomic"

	"github.com/go-drift/drift-spine/pkg/errors"
)

// Channel names used by the platform view registry.
const (
	platformViewsChannel      = "drift/platform_views"
	platformViewEventsChannel = "drift/platform_views/events"
)

// PlatformView represents a native view embedded in the Drift UI.
type PlatformView interface {
	// ViewID returns the unique identifier for this view.
	ViewID() int64

	// ViewType returns the type identifier for this view (e.g., "spine_view").
	ViewType() string

	// Create initializes the Go side of the view with the creation parameters.
	Create(params map[string]any) error

	// Dispose cleans up the Go side of the view.
	Dispose()

	// SetGeometry positions and sizes the native view in logical pixels.
	SetGeometry(offset Offset, size Size)

	// SetVisible shows or hides the native view.
	SetVisible(visible bool)
}

// ViewEventReceiver is implemented by platform views that accept events
// pushed by their native counterpart.
type ViewEventReceiver interface {
	HandleViewEvent(method string, args map[string]any)
}

// PlatformViewFactory creates platform views of a specific type.
type PlatformViewFactory interface {
	// Create creates a new platform view instance.
	Create(viewID int64, params map[string]any) (PlatformView, error)

	// ViewType returns the view type this factory creates.
	ViewType() string
}

// PlatformViewRegistry manages platform view types and instances.
type PlatformViewRegistry struct {
	factories map[string]PlatformViewFactory
	views     map[int64]PlatformView
	nextID    atomic.Int64
	mu        sync.RWMutex
	channel   *MethodChannel
	events    *EventChannel
}

var (
	platformViewRegistry     *PlatformViewRegistry
	platformViewRegistryOnce sync.Once
)

// GetPlatformViewRegistry returns the global platform view registry.
func GetPlatformViewRegistry() *PlatformViewRegistry {
	platformViewRegistryOnce.Do(func() {
		platformViewRegistry = newPlatformViewRegistry()
	})
	return platformViewRegistry
}

func newPlatformViewRegistry() *PlatformViewRegistry {
	r := &PlatformViewRegistry{
		factories: make(map[string]PlatformViewFactory),
		views:     make(map[int64]PlatformView),
		channel:   NewMethodChannel(platformViewsChannel),
		events:    NewEventChannel(platformViewEventsChannel),
	}
	r.channel.SetHandler(r.handleMethodCall)
	r.listen()
	RegisterResetHook(r.listen)
	return r
}

// listen routes native view events to the addressed view.
func (r *PlatformViewRegistry) listen() {
	r.events.Listen(EventHandler{
		OnEvent: func(data any) {
			m := parseMap(data)
			viewID, ok := toInt64(m["viewId"])
			if !ok {
				errors.Report(&errors.SpineError{
					Op:      "PlatformViewRegistry.event",
					Kind:    errors.KindParsing,
					Channel: platformViewEventsChannel,
					Err:     &errors.ParseError{Channel: platformViewEventsChannel, DataType: "view event", Got: data},
				})
				return
			}
			if recv, ok := r.GetView(viewID).(ViewEventReceiver); ok {
				recv.HandleViewEvent(parseString(m["method"]), m)
			}
		},
		OnError: func(err error) {
			if stderrors.Is(err, ErrPlatformUnavailable) {
				return
			}
			errors.Report(&errors.SpineError{
				Op:      "PlatformViewRegistry.events",
				Kind:    errors.KindPlatform,
				Channel: platformViewEventsChannel,
				Err:     err,
			})
		},
	})
}

// RegisterFactory registers a factory for a platform view type.
func (r *PlatformViewRegistry) RegisterFactory(factory PlatformViewFactory) {
	r.mu.Lock()
	r.factories[factory.ViewType()] = factory
	r.mu.Unlock()
}

// Create creates a new platform view of the given type and asks native to
// build its counterpart.
func (r *PlatformViewRegistry) Create(viewType string, params map[string]any) (PlatformView, error) {
	r.mu.RLock()
	factory, ok := r.factories[viewType]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrViewTypeNotFound
	}

	viewID := r.nextID.Add(1)
	view, err := factory.Create(viewID, params)
	if err != nil {
		return nil, err
	}
	if err := view.Create(params); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.views[viewID] = view
	r.mu.Unlock()

	_, err = r.channel.Invoke("create", map[string]any{
		"viewId":   viewID,
		"viewType": viewType,
		"params":   params,
	})
	if err != nil {
		r.mu.Lock()
		delete(r.views, viewID)
		r.mu.Unlock()
		view.Dispose()
		return nil, err
	}
	return view, nil
}

// Dispose destroys a platform view. Unknown ids are ignored.
func (r *PlatformViewRegistry) Dispose(viewID int64) {
	r.mu.Lock()
	view, ok := r.views[viewID]
	if ok {
		delete(r.views, viewID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	view.Dispose()
	if _, err := r.channel.Invoke("dispose", map[string]any{"viewId": viewID}); err != nil {
		errors.Report(&errors.SpineError{
			Op:      "PlatformViewRegistry.Dispose",
			Kind:    errors.KindPlatform,
			Channel: platformViewsChannel,
			ViewID:  viewID,
			Err:     err,
		})
	}
}

// GetView returns a platform view by ID, or nil.
func (r *PlatformViewRegistry) GetView(viewID int64) PlatformView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.views[viewID]
}

// UpdateViewGeometry notifies native of a view's position and size change.
func (r *PlatformViewRegistry) UpdateViewGeometry(viewID int64, offset Offset, size Size) error {
	_, err := r.channel.Invoke("setGeometry", map[string]any{
		"viewId": viewID,
		"x":      offset.X,
		"y":      offset.Y,
		"width":  size.Width,
		"height": size.Height,
	})
	return err
}

// SetViewVisible notifies native to show or hide a view.
func (r *PlatformViewRegistry) SetViewVisible(viewID int64, visible bool) error {
	_, err := r.channel.Invoke("setVisible", map[string]any{
		"viewId":  viewID,
		"visible": visible,
	})
	return err
}

// InvokeViewMethod invokes a method on a specific platform view.
func (r *PlatformViewRegistry) InvokeViewMethod(viewID int64, method string, args map[string]any) (any, error) {
	invokeArgs := make(map[string]any, len(args)+2)
	for k, v := range args {
		invokeArgs[k] = v
	}
	invokeArgs["viewId"] = viewID
	invokeArgs["method"] = method
	return r.channel.Invoke("invokeViewMethod", invokeArgs)
}

func (r *PlatformViewRegistry) handleMethodCall(method string, args any) (any, error) {
	switch method {
	case "onViewCreated", "onViewDisposed":
		return nil, nil
	default:
		return nil, ErrMethodNotFound
	}
}

// BasePlatformView provides the geometry and visibility plumbing shared by
// platform views. Embed it and implement Create and Dispose.
type BasePlatformView struct {
	mu       sync.Mutex
	viewID   int64
	viewType string
	offset   Offset
	size     Size
	visible  bool
}

// NewBasePlatformView returns a BasePlatformView for the given id and type.
func NewBasePlatformView(viewID int64, viewType string) *BasePlatformView {
	return &BasePlatformView{viewID: viewID, viewType: viewType, visible: true}
}

func (v *BasePlatformView) ViewID() int64 {
	return v.viewID
}

func (v *BasePlatformView) ViewType() string {
	return v.viewType
}

// Visible reports the last visibility sent to native.
func (v *BasePlatformView) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

// Size returns the last size sent to native.
func (v *BasePlatformView) Size() Size {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.size
}

// Offset returns the last position sent to native.
func (v *BasePlatformView) Offset() Offset {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset
}

func (v *BasePlatformView) SetGeometry(offset Offset, size Size) {
	v.mu.Lock()
	v.offset, v.size = offset, size
	v.mu.Unlock()
	v.reportGeometry(GetPlatformViewRegistry().UpdateViewGeometry(v.viewID, offset, size))
}

func (v *BasePlatformView) SetVisible(visible bool) {
	v.mu.Lock()
	v.visible = visible
	v.mu.Unlock()
	v.reportGeometry(GetPlatformViewRegistry().SetViewVisible(v.viewID, visible))
}

func (v *BasePlatformView) reportGeometry(err error) {
	if err == nil {
		return
	}
	errors.Report(&errors.SpineError{
		Op:      "PlatformView.geometry",
		Kind:    errors.KindPlatform,
		Channel: platformViewsChannel,
		ViewID:  v.viewID,
		Err:     err,
	})
}
