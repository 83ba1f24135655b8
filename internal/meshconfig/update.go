package meshconfig

import "fmt"

// Update is a partial configuration change. Nil fields keep their current
// value.
type Update struct {
	SSID       *string
	Password   *string
	Channel    *int
	APPassword *string
	PowerSave  *bool
}

// Ptr returns a pointer to v, for filling Update fields inline
func Ptr[T any](v T) *T {
	return &v
}

// IsEmpty reports whether u changes nothing
func (u Update) IsEmpty() bool {
	return u.SSID == nil && u.Password == nil && u.Channel == nil &&
		u.APPassword == nil && u.PowerSave == nil
}

// Fields returns the names of the parameters u sets, in SettableKeys order
func (u Update) Fields() []string {
	var fields []string
	if u.SSID != nil {
		fields = append(fields, KeySSID)
	}
	if u.Password != nil {
		fields = append(fields, KeyPassword)
	}
	if u.Channel != nil {
		fields = append(fields, KeyChannel)
	}
	if u.APPassword != nil {
		fields = append(fields, KeyAPPassword)
	}
	if u.PowerSave != nil {
		fields = append(fields, KeyPowerSave)
	}
	return fields
}

// Validate checks every field u sets and returns the first failure
func (u Update) Validate() error {
	if u.SSID != nil {
		if err := ValidateSSID(*u.SSID); err != nil {
			return err
		}
	}
	if u.Password != nil {
		if err := ValidatePassword(*u.Password); err != nil {
			return err
		}
	}
	if u.Channel != nil {
		if err := ValidateChannel(*u.Channel); err != nil {
			return err
		}
	}
	if u.APPassword != nil {
		if err := ValidateAPPassword(*u.APPassword); err != nil {
			return err
		}
	}
	return nil
}

// String lists the fields being set without revealing secrets
func (u Update) String() string {
	return fmt.Sprintf("Update%v", u.Fields())
}

func validateLength(field string, value string, capacity int) error {
	if limit := capacity - 1; len(value) > limit {
		return NewValueTooLongError(field, len(value), limit)
	}
	return nil
}

// ValidateSSID checks the router SSID fits its field (31 bytes)
func ValidateSSID(ssid string) error {
	return validateLength(KeySSID, ssid, SSIDCapacity)
}

// ValidatePassword checks the router password fits its field (63 bytes)
func ValidatePassword(password string) error {
	return validateLength(KeyPassword, password, PasswordCapacity)
}

// ValidateAPPassword checks the mesh softAP password fits its field (63 bytes)
func ValidateAPPassword(password string) error {
	return validateLength(KeyAPPassword, password, APPasswordCapacity)
}

// ValidateChannel accepts any non-negative channel. Zero means unset; the
// engine enforces the real radio bounds at activation.
func ValidateChannel(channel int) error {
	if channel < 0 {
		return NewValueOutOfRangeError(KeyChannel, channel, "must be >= 0")
	}
	return nil
}
