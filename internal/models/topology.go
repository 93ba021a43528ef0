package models

// VolumeAttachment maps a volume to its currently attached instance.
// InstanceID is empty when the volume exists but is detached. A volume with
// no entry in the lookup at all is unknown (no longer in inventory).
//
// Attachment state is as fresh as the moment the inventory was fetched,
// while events are historical. A volume can legitimately show as detached
// here even though the event stream shows a snapshot taken while it was
// attached. That skew is a property of the domain, not a bug.
type VolumeAttachment struct {
	VolumeID   string
	InstanceID string
}

// InstanceInfo carries the display name for an instance, taken from its
// Name tag. Name is empty when the instance carries no Name tag.
type InstanceInfo struct {
	InstanceID string
	Name       string
}

// VolumeLookup resolves volume id to current attachment state.
type VolumeLookup map[string]VolumeAttachment

// InstanceLookup resolves instance id to its tag-derived display name.
type InstanceLookup map[string]InstanceInfo
