// Package retrypolicy holds the pure decision logic that bounds automatic
// failure recovery. It knows nothing about storage; callers pass in the
// failed-job count and persist the resulting decision in the item's failure
// payload.
package retrypolicy
