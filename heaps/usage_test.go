package heaps

import (
	"testing"

	"github.com/forgegpu/vkheaps/heaps/vk"
)

func TestFitnessRequiredAndForbidden(t *testing.T) {
	deviceLocal := vk.MemoryPropertyDeviceLocalBit
	hostVisible := vk.MemoryPropertyHostVisibleBit
	coherent := vk.MemoryPropertyHostCoherentBit
	cached := vk.MemoryPropertyHostCachedBit
	lazy := vk.MemoryPropertyLazilyAllocatedBit

	tests := []struct {
		name       string
		usage      MemoryUsage
		properties vk.MemoryPropertyFlags
		wantOK     bool
	}{
		{"data needs device-local", UsageData, hostVisible, false},
		{"data accepts device-local", UsageData, deviceLocal, true},
		{"dynamic needs host-visible", UsageDynamic, deviceLocal, false},
		{"dynamic rejects lazily-allocated", UsageDynamic, hostVisible | lazy, false},
		{"upload rejects host-cached", UsageUpload, hostVisible | cached, false},
		{"upload accepts coherent", UsageUpload, hostVisible | coherent, true},
		{"download accepts cached", UsageDownload, hostVisible | cached, true},
		{"download rejects lazily-allocated", UsageDownload, hostVisible | lazy, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tt.usage.fitness(tt.properties)
			if ok != tt.wantOK {
				t.Fatalf("fitness(%v, %v) ok = %v, want %v", tt.usage, tt.properties, ok, tt.wantOK)
			}
		})
	}
}

func TestFitnessOrdering(t *testing.T) {
	// Data: device-local > cached > coherent.
	deviceLocal := vk.MemoryPropertyDeviceLocalBit
	cached := vk.MemoryPropertyHostCachedBit

	scoreDL, ok := UsageData.fitness(deviceLocal)
	if !ok {
		t.Fatal("device-local must be compatible with Data")
	}
	scoreDLCached, ok := UsageData.fitness(deviceLocal | cached)
	if !ok {
		t.Fatal("device-local+cached must be compatible with Data")
	}
	if scoreDLCached <= scoreDL {
		t.Fatalf("adding a preferred bit must strictly increase fitness: %d vs %d", scoreDLCached, scoreDL)
	}

	// Upload: coherent outranks device-local.
	coherent := vk.MemoryPropertyHostCoherentBit
	hostVisible := vk.MemoryPropertyHostVisibleBit
	scoreCoherent, _ := UsageUpload.fitness(hostVisible | coherent)
	scoreDeviceLocal, _ := UsageUpload.fitness(hostVisible | deviceLocal)
	if scoreCoherent <= scoreDeviceLocal {
		t.Fatalf("coherent must outrank device-local for Upload: %d vs %d", scoreCoherent, scoreDeviceLocal)
	}
}
