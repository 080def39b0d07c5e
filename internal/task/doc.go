// Package task manages background job queuing, processing, and lifecycle.
// It provides mechanisms for asynchronous execution of long-running
// conversions, ensuring they don't block HTTP request handling and can
// recover from application restarts. The Manager enforces the task state
// machine; the Runner owns the worker pool, stuck-task detection, and
// crash recovery.
package task
